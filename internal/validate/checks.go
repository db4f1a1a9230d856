package validate

import (
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/irl-dan/open-prose-sub003/internal/ast"
)

// ParallelStage enforces branch-count rules on parallel blocks. The
// parser accepts any branch count; the shape rules live here so the
// parse tree stays faithful to the source.
type ParallelStage struct{}

func (s *ParallelStage) Name() string { return "parallel" }

func (s *ParallelStage) Check(prog *ast.Program, rep *Reporter) {
	ast.Walk(prog, func(n ast.Node) bool {
		pb, ok := n.(*ast.ParallelBlock)
		if !ok {
			return true
		}
		if pb.ForVar != "" {
			// parallel-for fan-out is sized by the collection at run time.
			return true
		}
		branches := len(pb.Body)
		switch pb.Strategy {
		case ast.JoinFirst:
			if branches < 2 {
				rep.Error(pb.Span(), `parallel ("first") requires at least two branches`,
					"racing a single branch has no effect")
			}
		case ast.JoinAny:
			if branches < 2 {
				rep.Error(pb.Span(), `parallel ("any") requires at least two branches`, "")
			}
			if pb.Count < 1 {
				rep.Error(pb.Span(), `parallel ("any") requires a completion count`,
					`write parallel ("any", 2):`)
			} else if pb.Count > branches {
				rep.Error(pb.Span(),
					fmt.Sprintf("parallel (\"any\", %d) cannot complete with only %d branches", pb.Count, branches), "")
			}
		default:
			if branches == 1 {
				rep.Warning(pb.Span(), "parallel block has a single branch",
					"a one-branch parallel runs sequentially; did you mean 'do:'?")
			}
		}
		return true
	})
}

// DiscretionStage checks that judgment points actually carry a
// condition: choice criteria and unbounded loop conditions. The
// condition text itself is never interpreted here; boolean (non-
// discretion) loop conditions only get a syntax check.
type DiscretionStage struct{}

func (s *DiscretionStage) Name() string { return "discretion" }

func (s *DiscretionStage) Check(prog *ast.Program, rep *Reporter) {
	ast.Walk(prog, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.ChoiceBlock:
			if x.Criteria == nil || x.Criteria.Text == "" {
				rep.Error(x.Span(), "choice requires non-empty discretion criteria",
					"add **criteria** describing how to pick an option")
			}
			if len(x.Options) == 0 {
				rep.Error(x.Span(), "choice requires at least one option", "")
			}
		case *ast.LoopBlock:
			if x.Kind != ast.LoopUntil && x.Kind != ast.LoopWhile {
				return true
			}
			if x.Condition == nil {
				rep.Error(x.Span(), fmt.Sprintf("loop %s requires a condition", x.Kind),
					"add a **discretion condition** or a boolean expression")
				return true
			}
			if d, ok := x.Condition.(*ast.DiscretionNode); ok {
				if d.Text == "" {
					rep.Error(d.Span(), "discretion condition is empty", "")
				}
				return true
			}
			if x.ConditionText != "" {
				if _, err := expr.Compile(x.ConditionText); err != nil {
					rep.Error(x.Condition.Span(),
						fmt.Sprintf("invalid boolean condition: %v", err),
						"use a **discretion condition** for natural-language checks")
				}
			}
		}
		return true
	})
}

// ContextStage checks the shape of context properties. Reference
// resolution for context entries happens in the scope stage; this stage
// rejects values that cannot denote context at all.
type ContextStage struct{}

func (s *ContextStage) Name() string { return "context" }

func (s *ContextStage) Check(prog *ast.Program, rep *Reporter) {
	ast.Walk(prog, func(n ast.Node) bool {
		sess, ok := n.(*ast.SessionStatement)
		if !ok {
			return true
		}
		for _, prop := range sess.Properties {
			if prop.Key != "context" {
				continue
			}
			switch v := prop.Value.(type) {
			case *ast.ArrayExpression, *ast.Identifier, *ast.StringLiteral:
				// [] is explicit no-context; identifiers and names are
				// resolved by the scope stage.
			case nil:
				rep.Error(prop.Span(), "context property has no value", "")
			default:
				rep.Error(v.Span(), "malformed context value",
					"context takes a binding name or a list of binding names; [] means no context")
			}
		}
		return true
	})
}
