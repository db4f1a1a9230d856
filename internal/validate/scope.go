package validate

import (
	"fmt"

	"github.com/irl-dan/open-prose-sub003/internal/ast"
)

// ScopeStage resolves references lexically: definitions are visible to
// later statements in the same scope and to nested block bodies;
// sibling blocks never see each other's definitions.
type ScopeStage struct{}

func (s *ScopeStage) Name() string { return "scope" }

func (s *ScopeStage) Check(prog *ast.Program, rep *Reporter) {
	root := newScope(nil)
	walkScope(prog.Statements, root, rep)
}

type varInfo struct {
	mutable bool
}

type scope struct {
	parent *scope
	blocks map[string]*ast.BlockDefinition
	agents map[string]*ast.AgentDefinition
	vars   map[string]varInfo
}

func newScope(parent *scope) *scope {
	return &scope{
		parent: parent,
		blocks: map[string]*ast.BlockDefinition{},
		agents: map[string]*ast.AgentDefinition{},
		vars:   map[string]varInfo{},
	}
}

func (sc *scope) child() *scope { return newScope(sc) }

func (sc *scope) lookupBlock(name string) *ast.BlockDefinition {
	for s := sc; s != nil; s = s.parent {
		if b, ok := s.blocks[name]; ok {
			return b
		}
	}
	return nil
}

func (sc *scope) lookupAgent(name string) *ast.AgentDefinition {
	for s := sc; s != nil; s = s.parent {
		if a, ok := s.agents[name]; ok {
			return a
		}
	}
	return nil
}

func (sc *scope) lookupVar(name string) (varInfo, bool) {
	for s := sc; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return varInfo{}, false
}

func (sc *scope) blockNames() map[string]bool {
	names := map[string]bool{}
	for s := sc; s != nil; s = s.parent {
		for n := range s.blocks {
			names[n] = true
		}
	}
	return names
}

func (sc *scope) agentNames() map[string]bool {
	names := map[string]bool{}
	for s := sc; s != nil; s = s.parent {
		for n := range s.agents {
			names[n] = true
		}
	}
	return names
}

// walkScope processes statements in source order so that only earlier
// definitions are visible to each statement.
func walkScope(stmts []ast.Statement, sc *scope, rep *Reporter) {
	for _, stmt := range stmts {
		switch x := stmt.(type) {
		case *ast.BlockDefinition:
			if _, exists := sc.blocks[x.Name]; exists {
				rep.Error(x.Span(), fmt.Sprintf("duplicate block definition %q", x.Name),
					"block names must be unique within their scope")
			} else {
				sc.blocks[x.Name] = x
			}
			body := sc.child()
			for _, param := range x.Params {
				body.vars[param.Name] = varInfo{mutable: false}
			}
			walkScope(x.Body, body, rep)

		case *ast.AgentDefinition:
			if _, exists := sc.agents[x.Name]; exists {
				rep.Error(x.Span(), fmt.Sprintf("duplicate agent definition %q", x.Name),
					"agent names must be unique within their scope")
			} else {
				sc.agents[x.Name] = x
			}

		case *ast.SessionStatement:
			if x.AgentRef != "" && sc.lookupAgent(x.AgentRef) == nil {
				rep.Error(x.Span(), fmt.Sprintf("unresolved reference: agent %q", x.AgentRef),
					suggest(x.AgentRef, sc.agentNames()))
			}
			checkSessionContext(x, sc, rep)
			if x.Name != "" {
				sc.vars[x.Name] = varInfo{mutable: false}
			}

		case *ast.DoBlock:
			checkDo(x, sc, rep)

		case *ast.ParallelBlock:
			body := sc.child()
			if x.ForVar != "" {
				body.vars[x.ForVar] = varInfo{mutable: false}
			}
			if x.ForCollection != nil {
				checkExpr(x.ForCollection, sc, rep)
			}
			walkScope(x.Body, body, rep)

		case *ast.ChoiceBlock:
			for _, opt := range x.Options {
				walkScope(opt.Body, sc.child(), rep)
			}

		case *ast.LoopBlock:
			body := sc.child()
			if x.Var != "" {
				body.vars[x.Var] = varInfo{mutable: false}
			}
			if x.Collection != nil {
				checkExpr(x.Collection, sc, rep)
			}
			walkScope(x.Body, body, rep)

		case *ast.TryBlock:
			walkScope(x.Body, sc.child(), rep)
			catchScope := sc.child()
			if x.CatchName != "" {
				catchScope.vars[x.CatchName] = varInfo{mutable: false}
			}
			walkScope(x.CatchBody, catchScope, rep)
			walkScope(x.FinallyBody, sc.child(), rep)

		case *ast.Binding:
			if x.Value != nil {
				checkExpr(x.Value, sc, rep)
			}
			sc.vars[x.Name] = varInfo{mutable: x.Mutable}

		case *ast.Assignment:
			info, ok := sc.lookupVar(x.Name)
			if !ok {
				rep.Error(x.Span(), fmt.Sprintf("unresolved reference: variable %q", x.Name),
					"assignments require an earlier 'let' binding")
			} else if !info.mutable {
				rep.Error(x.Span(), fmt.Sprintf("cannot assign to const %q", x.Name),
					"declare it with 'let' to allow reassignment")
			}
			if x.Value != nil {
				checkExpr(x.Value, sc, rep)
			}

		case *ast.ExpressionStatement:
			checkExpr(x.Expr, sc, rep)
		}
	}
}

func checkDo(d *ast.DoBlock, sc *scope, rep *Reporter) {
	if d.Target == "" {
		// Anonymous sequential group or arrow chain.
		walkScope(d.Body, sc.child(), rep)
		return
	}

	def := sc.lookupBlock(d.Target)
	if def == nil {
		rep.Error(d.Span(), fmt.Sprintf("unresolved reference: block %q", d.Target),
			suggest(d.Target, sc.blockNames()))
		return
	}
	checkArity(d, def, rep)
	for _, arg := range d.Args {
		checkExpr(arg.Value, sc, rep)
	}
}

// checkArity matches invocation arguments against the definition's
// parameter list: positional args fill parameters in order, named args
// must name a declared parameter, and every parameter without a default
// must be covered.
func checkArity(d *ast.DoBlock, def *ast.BlockDefinition, rep *Reporter) {
	params := map[string]*ast.Parameter{}
	for _, p := range def.Params {
		params[p.Name] = p
	}

	covered := map[string]bool{}
	positional := 0
	for _, arg := range d.Args {
		if arg.Name == "" {
			if positional >= len(def.Params) {
				rep.Error(arg.Span(),
					fmt.Sprintf("too many arguments for block %q: takes %d, got %d",
						def.Name, len(def.Params), len(d.Args)), "")
				return
			}
			covered[def.Params[positional].Name] = true
			positional++
			continue
		}
		p, ok := params[arg.Name]
		if !ok {
			rep.Error(arg.Span(),
				fmt.Sprintf("block %q has no parameter %q", def.Name, arg.Name),
				suggest(arg.Name, paramNames(def)))
			continue
		}
		if covered[p.Name] {
			rep.Error(arg.Span(),
				fmt.Sprintf("parameter %q given more than once", arg.Name), "")
			continue
		}
		covered[p.Name] = true
	}

	for _, p := range def.Params {
		if p.Default == nil && !covered[p.Name] {
			rep.Error(d.Span(),
				fmt.Sprintf("missing argument %q for block %q", p.Name, def.Name),
				"parameters without defaults are required")
		}
	}
}

func paramNames(def *ast.BlockDefinition) map[string]bool {
	names := map[string]bool{}
	for _, p := range def.Params {
		names[p.Name] = true
	}
	return names
}

// checkSessionContext resolves identifiers referenced by a session's
// context property. context: [] is explicit no-context and always valid.
func checkSessionContext(s *ast.SessionStatement, sc *scope, rep *Reporter) {
	for _, prop := range s.Properties {
		if prop.Key != "context" {
			continue
		}
		switch v := prop.Value.(type) {
		case *ast.Identifier:
			checkContextRef(v, sc, rep)
		case *ast.ArrayExpression:
			for _, elem := range v.Elements {
				if id, ok := elem.(*ast.Identifier); ok {
					checkContextRef(id, sc, rep)
				}
			}
		}
	}
}

func checkContextRef(id *ast.Identifier, sc *scope, rep *Reporter) {
	if _, ok := sc.lookupVar(id.Name); ok {
		return
	}
	rep.Error(id.Span(), fmt.Sprintf("context references undefined binding %q", id.Name),
		"context entries must name an earlier binding or named session")
}

// checkExpr reports unresolved identifier reads inside value
// expressions. Discretion text and string interpolation are left to the
// executor's judgment and are not resolved here.
func checkExpr(e ast.Expression, sc *scope, rep *Reporter) {
	switch x := e.(type) {
	case *ast.Identifier:
		if _, ok := sc.lookupVar(x.Name); !ok {
			rep.Error(x.Span(), fmt.Sprintf("unresolved reference: variable %q", x.Name), "")
		}
	case *ast.ArrayExpression:
		for _, elem := range x.Elements {
			checkExpr(elem, sc, rep)
		}
	case *ast.ObjectExpression:
		for _, f := range x.Fields {
			if f.Value != nil {
				checkExpr(f.Value, sc, rep)
			}
		}
	case *ast.PipeExpression:
		checkExpr(x.Source, sc, rep)
		for _, stage := range x.Stages {
			body := sc.child()
			body.vars["item"] = varInfo{mutable: false}
			if stage.AccName != "" {
				body.vars[stage.AccName] = varInfo{mutable: false}
			}
			if stage.CurName != "" {
				body.vars[stage.CurName] = varInfo{mutable: false}
			}
			walkScope(stage.Body, body, rep)
		}
	}
}
