package ast

// Visitor is called for each node during a walk. Returning false stops
// descent into that node's children.
type Visitor func(Node) bool

// Walk traverses the tree rooted at n in depth-first source order,
// calling v for every node. It is the single traversal used by the
// validator and the highlighting view so structural changes stay in one
// place.
func Walk(n Node, v Visitor) {
	if n == nil || !v(n) {
		return
	}

	switch x := n.(type) {
	case *Program:
		walkStatements(x.Statements, v)

	case *CommentStatement, *ImportStatement:
		// leaves

	case *AgentDefinition:
		if x.Prompt != nil {
			Walk(x.Prompt, v)
		}
		for _, p := range x.Properties {
			Walk(p, v)
		}

	case *BlockDefinition:
		for _, p := range x.Params {
			Walk(p, v)
		}
		walkStatements(x.Body, v)

	case *Parameter:
		if x.Default != nil {
			Walk(x.Default, v)
		}

	case *SessionStatement:
		if x.Prompt != nil {
			Walk(x.Prompt, v)
		}
		for _, p := range x.Properties {
			Walk(p, v)
		}

	case *DoBlock:
		for _, a := range x.Args {
			Walk(a, v)
		}
		walkStatements(x.Body, v)

	case *Argument:
		if x.Value != nil {
			Walk(x.Value, v)
		}

	case *ParallelBlock:
		if x.ForCollection != nil {
			Walk(x.ForCollection, v)
		}
		walkStatements(x.Body, v)

	case *ChoiceBlock:
		if x.Criteria != nil {
			Walk(x.Criteria, v)
		}
		for _, opt := range x.Options {
			Walk(opt, v)
		}

	case *ChoiceOption:
		walkStatements(x.Body, v)

	case *LoopBlock:
		if x.Collection != nil {
			Walk(x.Collection, v)
		}
		if x.Condition != nil {
			Walk(x.Condition, v)
		}
		walkStatements(x.Body, v)

	case *TryBlock:
		walkStatements(x.Body, v)
		walkStatements(x.CatchBody, v)
		walkStatements(x.FinallyBody, v)

	case *Binding:
		if x.Value != nil {
			Walk(x.Value, v)
		}

	case *Assignment:
		if x.Value != nil {
			Walk(x.Value, v)
		}

	case *ExpressionStatement:
		Walk(x.Expr, v)

	case *ArrayExpression:
		for _, e := range x.Elements {
			Walk(e, v)
		}

	case *ObjectExpression:
		for _, f := range x.Fields {
			Walk(f, v)
		}

	case *ObjectField:
		if x.Value != nil {
			Walk(x.Value, v)
		}

	case *PipeExpression:
		Walk(x.Source, v)
		for _, s := range x.Stages {
			Walk(s, v)
		}

	case *PipeStage:
		walkStatements(x.Body, v)

	case *Property:
		if x.Value != nil {
			Walk(x.Value, v)
		}

	case *StringLiteral, *NumberLiteral, *Identifier, *DiscretionNode:
		// leaves
	}
}

func walkStatements(stmts []Statement, v Visitor) {
	for _, s := range stmts {
		Walk(s, v)
	}
}
