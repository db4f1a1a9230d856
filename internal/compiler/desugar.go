package compiler

import (
	"fmt"

	"github.com/irl-dan/open-prose-sub003/internal/ast"
)

// Desugar expands syntax sugar into explicit canonical structure. The
// input program is never mutated; rewritten nodes are copies.
//
// Arrow chains become sequential do blocks: every session in the chain
// gets a name (stepN when the author gave none) and every session after
// the first gets an implicit context edge to its predecessor, unless it
// already carries an explicit context property.
func Desugar(prog *ast.Program) *ast.Program {
	return &ast.Program{
		Path:       prog.Path,
		Statements: desugarStatements(prog.Statements),
		Comments:   prog.Comments,
		SourceSpan: prog.SourceSpan,
	}
}

func desugarStatements(stmts []ast.Statement) []ast.Statement {
	if stmts == nil {
		return nil
	}
	out := make([]ast.Statement, 0, len(stmts))
	for _, stmt := range stmts {
		out = append(out, desugarStatement(stmt))
	}
	return out
}

func desugarStatement(stmt ast.Statement) ast.Statement {
	switch x := stmt.(type) {
	case *ast.DoBlock:
		if x.FromChain {
			return desugarChain(x)
		}
		cp := *x
		cp.Body = desugarStatements(x.Body)
		return &cp

	case *ast.BlockDefinition:
		cp := *x
		cp.Body = desugarStatements(x.Body)
		return &cp

	case *ast.ParallelBlock:
		cp := *x
		cp.Body = desugarStatements(x.Body)
		return &cp

	case *ast.ChoiceBlock:
		cp := *x
		cp.Options = make([]*ast.ChoiceOption, 0, len(x.Options))
		for _, opt := range x.Options {
			oc := *opt
			oc.Body = desugarStatements(opt.Body)
			cp.Options = append(cp.Options, &oc)
		}
		return &cp

	case *ast.LoopBlock:
		cp := *x
		cp.Body = desugarStatements(x.Body)
		return &cp

	case *ast.TryBlock:
		cp := *x
		cp.Body = desugarStatements(x.Body)
		cp.CatchBody = desugarStatements(x.CatchBody)
		cp.FinallyBody = desugarStatements(x.FinallyBody)
		return &cp

	default:
		return stmt
	}
}

func desugarChain(chain *ast.DoBlock) *ast.DoBlock {
	out := &ast.DoBlock{SourceSpan: chain.SourceSpan}

	prevName := ""
	for i, elem := range chain.Body {
		sess, ok := elem.(*ast.SessionStatement)
		if !ok {
			// Block invocations pass through; they carry no result name
			// for the next session to hang a context edge on.
			prevName = ""
			out.Body = append(out.Body, desugarStatement(elem))
			continue
		}

		cp := *sess
		if cp.Name == "" {
			cp.Name = fmt.Sprintf("step%d", i+1)
		}
		if prevName != "" && !hasContextProperty(cp.Properties) {
			edge := &ast.Property{
				Key: "context",
				Value: &ast.ArrayExpression{
					Elements:   []ast.Expression{&ast.Identifier{Name: prevName, SourceSpan: sess.SourceSpan}},
					SourceSpan: sess.SourceSpan,
				},
				SourceSpan: sess.SourceSpan,
			}
			cp.Properties = append([]*ast.Property{edge}, sess.Properties...)
		}
		prevName = cp.Name
		out.Body = append(out.Body, &cp)
	}
	return out
}

func hasContextProperty(props []*ast.Property) bool {
	for _, p := range props {
		if p.Key == "context" {
			return true
		}
	}
	return false
}
