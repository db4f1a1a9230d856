package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/irl-dan/open-prose-sub003/internal/ast"
)

func parseOK(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, errs := Parse(src, "test.prose")
	if len(errs) != 0 {
		for _, e := range errs {
			t.Logf("  %s", e.Error())
		}
		t.Fatalf("unexpected parse errors: %d", len(errs))
	}
	return prog
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func TestParse_CommentThenSession(t *testing.T) {
	prog := parseOK(t, "# note\nsession \"hi\"\n")

	if len(prog.Statements) != 2 {
		t.Fatalf("got %d statements, want 2", len(prog.Statements))
	}
	c, ok := prog.Statements[0].(*ast.CommentStatement)
	if !ok {
		t.Fatalf("statement 0 is %T, want CommentStatement", prog.Statements[0])
	}
	if c.Text != "# note" {
		t.Errorf("got comment %q", c.Text)
	}
	s, ok := prog.Statements[1].(*ast.SessionStatement)
	if !ok {
		t.Fatalf("statement 1 is %T, want SessionStatement", prog.Statements[1])
	}
	lit, ok := s.Prompt.(*ast.StringLiteral)
	if !ok || lit.Value != "hi" {
		t.Errorf("got prompt %#v", s.Prompt)
	}
}

func TestParse_SessionForms(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantName  string
		wantAgent string
		wantText  string
	}{
		{"bare prompt", `session "do it"`, "", "", "do it"},
		{"named", `session draft "write"`, "draft", "", "write"},
		{"agent ref", `session : helper "write"`, "", "helper", "write"},
		{"named with agent", `session draft : helper "write"`, "draft", "helper", "write"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prog := parseOK(t, tc.src+"\n")
			s := prog.Statements[0].(*ast.SessionStatement)
			if s.Name != tc.wantName {
				t.Errorf("name: got %q, want %q", s.Name, tc.wantName)
			}
			if s.AgentRef != tc.wantAgent {
				t.Errorf("agent: got %q, want %q", s.AgentRef, tc.wantAgent)
			}
			lit, _ := s.Prompt.(*ast.StringLiteral)
			if lit == nil || lit.Value != tc.wantText {
				t.Errorf("prompt: got %#v, want %q", s.Prompt, tc.wantText)
			}
		})
	}
}

func TestParse_SessionProperties(t *testing.T) {
	prog := parseOK(t, `session review "Check it":
    context: [draft]
    retry: 3
`)
	s := prog.Statements[0].(*ast.SessionStatement)
	if len(s.Properties) != 2 {
		t.Fatalf("got %d properties, want 2", len(s.Properties))
	}
	if s.Properties[0].Key != "context" {
		t.Errorf("got key %q, want context", s.Properties[0].Key)
	}
	if s.Properties[1].Key != "retry" {
		t.Errorf("got key %q, want retry", s.Properties[1].Key)
	}
}

func TestParse_Imports(t *testing.T) {
	prog := parseOK(t, "import \"code-review\"\nimport \"search\" from \"registry\"\n")

	first := prog.Statements[0].(*ast.ImportStatement)
	if first.SkillName != "code-review" || first.Source != "" {
		t.Errorf("got %+v", first)
	}
	second := prog.Statements[1].(*ast.ImportStatement)
	if second.SkillName != "search" || second.Source != "registry" {
		t.Errorf("got %+v", second)
	}
}

func TestParse_AgentDefinition(t *testing.T) {
	prog := parseOK(t, `agent researcher:
    model: "claude-sonnet-4"
    prompt: "You research."
    skills: ["search", "summarize"]
    permissions: ["read"]
    temperature: 1
`)
	a := prog.Statements[0].(*ast.AgentDefinition)
	if a.Name != "researcher" {
		t.Errorf("name: got %q", a.Name)
	}
	if a.Model != "claude-sonnet-4" {
		t.Errorf("model: got %q", a.Model)
	}
	if len(a.Skills) != 2 || a.Skills[0] != "search" {
		t.Errorf("skills: got %v", a.Skills)
	}
	if len(a.Permissions) != 1 || a.Permissions[0] != "read" {
		t.Errorf("permissions: got %v", a.Permissions)
	}
	if len(a.Properties) != 1 || a.Properties[0].Key != "temperature" {
		t.Errorf("extra properties: got %v", a.Properties)
	}
}

func TestParse_BlockDefinition(t *testing.T) {
	prog := parseOK(t, `block review(file, depth: "full"):
    session "Review {file} at {depth}"
`)
	b := prog.Statements[0].(*ast.BlockDefinition)
	if b.Name != "review" {
		t.Errorf("name: got %q", b.Name)
	}
	if len(b.Params) != 2 {
		t.Fatalf("got %d params, want 2", len(b.Params))
	}
	if b.Params[0].Name != "file" || b.Params[0].Default != nil {
		t.Errorf("param 0: %+v", b.Params[0])
	}
	if b.Params[1].Name != "depth" || b.Params[1].Default == nil {
		t.Errorf("param 1: %+v", b.Params[1])
	}
	if len(b.Body) != 1 {
		t.Errorf("got %d body statements", len(b.Body))
	}
}

func TestParse_DoForms(t *testing.T) {
	prog := parseOK(t, `do:
    session "a"
    session "b"

do review
do review("main.go", depth: "quick")
`)
	anon := prog.Statements[0].(*ast.DoBlock)
	if anon.Target != "" || len(anon.Body) != 2 {
		t.Errorf("anonymous do: %+v", anon)
	}

	bare := prog.Statements[1].(*ast.DoBlock)
	if bare.Target != "review" || len(bare.Args) != 0 {
		t.Errorf("bare invocation: %+v", bare)
	}

	call := prog.Statements[2].(*ast.DoBlock)
	if call.Target != "review" || len(call.Args) != 2 {
		t.Fatalf("invocation: %+v", call)
	}
	if call.Args[0].Name != "" {
		t.Errorf("arg 0 should be positional, got name %q", call.Args[0].Name)
	}
	if call.Args[1].Name != "depth" {
		t.Errorf("arg 1: got name %q, want depth", call.Args[1].Name)
	}
}

// ---------------------------------------------------------------------------
// Arrow chains
// ---------------------------------------------------------------------------

func TestParse_ArrowChain(t *testing.T) {
	prog := parseOK(t, `session "plan" -> "build" -> do review -> session final "ship"
`)
	chain := prog.Statements[0].(*ast.DoBlock)
	if !chain.FromChain {
		t.Fatal("chain must be marked FromChain")
	}
	if len(chain.Body) != 4 {
		t.Fatalf("got %d chain elements, want 4", len(chain.Body))
	}

	if s := chain.Body[0].(*ast.SessionStatement); s.Prompt.(*ast.StringLiteral).Value != "plan" {
		t.Errorf("element 0: %+v", s)
	}
	if s := chain.Body[1].(*ast.SessionStatement); s.Prompt.(*ast.StringLiteral).Value != "build" {
		t.Errorf("element 1: %+v", s)
	}
	if d := chain.Body[2].(*ast.DoBlock); d.Target != "review" {
		t.Errorf("element 2: %+v", d)
	}
	if s := chain.Body[3].(*ast.SessionStatement); s.Name != "final" {
		t.Errorf("element 3: %+v", s)
	}
}

func TestParse_ChainTrailingProperties(t *testing.T) {
	prog := parseOK(t, `session "a" -> session last "b":
    context: []
`)
	chain := prog.Statements[0].(*ast.DoBlock)
	last := chain.Body[len(chain.Body)-1].(*ast.SessionStatement)
	if len(last.Properties) != 1 || last.Properties[0].Key != "context" {
		t.Errorf("trailing properties: %+v", last.Properties)
	}
}

// ---------------------------------------------------------------------------
// Parallel, choice, loops, try
// ---------------------------------------------------------------------------

func TestParse_ParallelForms(t *testing.T) {
	prog := parseOK(t, `parallel:
    session "a"

parallel ("first"):
    session "a"
    session "b"

parallel ("any", 2, on_fail: "continue"):
    session "a"
    session "b"
    session "c"

parallel for f in files:
    session "check {f}"
`)
	plain := prog.Statements[0].(*ast.ParallelBlock)
	if plain.Strategy != ast.JoinAll || len(plain.Body) != 1 {
		t.Errorf("plain: %+v", plain)
	}

	first := prog.Statements[1].(*ast.ParallelBlock)
	if first.Strategy != ast.JoinFirst {
		t.Errorf("first: %+v", first)
	}

	anyN := prog.Statements[2].(*ast.ParallelBlock)
	if anyN.Strategy != ast.JoinAny || anyN.Count != 2 || anyN.OnFail != "continue" {
		t.Errorf("any: %+v", anyN)
	}

	forVariant := prog.Statements[3].(*ast.ParallelBlock)
	if forVariant.ForVar != "f" || forVariant.ForCollection == nil {
		t.Errorf("for: %+v", forVariant)
	}
}

func TestParse_Choice(t *testing.T) {
	prog := parseOK(t, `choice **whichever fits the bug**:
    quick: session "patch it"
    thorough:
        session "write a test first"
        session "then fix it"
`)
	c := prog.Statements[0].(*ast.ChoiceBlock)
	if c.Criteria == nil || c.Criteria.Text != "whichever fits the bug" {
		t.Fatalf("criteria: %+v", c.Criteria)
	}
	if len(c.Options) != 2 {
		t.Fatalf("got %d options, want 2", len(c.Options))
	}
	if c.Options[0].Label != "quick" || len(c.Options[0].Body) != 1 {
		t.Errorf("option 0: %+v", c.Options[0])
	}
	if c.Options[1].Label != "thorough" || len(c.Options[1].Body) != 2 {
		t.Errorf("option 1: %+v", c.Options[1])
	}
}

func TestParse_LoopForms(t *testing.T) {
	prog := parseOK(t, `repeat 3:
    session "poll"

for item in items:
    session "handle {item}"

loop until **the build is green** (max: 10):
    session "fix the next failure"

loop while pending:
    session "drain"
`)
	rep := prog.Statements[0].(*ast.LoopBlock)
	if rep.Kind != ast.LoopRepeat || rep.Count != 3 {
		t.Errorf("repeat: %+v", rep)
	}

	forIn := prog.Statements[1].(*ast.LoopBlock)
	if forIn.Kind != ast.LoopForIn || forIn.Var != "item" {
		t.Errorf("for-in: %+v", forIn)
	}

	until := prog.Statements[2].(*ast.LoopBlock)
	if until.Kind != ast.LoopUntil || until.MaxIterations != 10 {
		t.Errorf("until: %+v", until)
	}
	if d, ok := until.Condition.(*ast.DiscretionNode); !ok || d.Text != "the build is green" {
		t.Errorf("until condition: %#v", until.Condition)
	}

	while := prog.Statements[3].(*ast.LoopBlock)
	if while.Kind != ast.LoopWhile || while.ConditionText != "pending" {
		t.Errorf("while: %+v", while)
	}
}

func TestParse_TryCatchFinally(t *testing.T) {
	prog := parseOK(t, `try:
    session "deploy"
catch err:
    session "report {err}"
    throw
finally:
    session "clean up"
`)
	tr := prog.Statements[0].(*ast.TryBlock)
	if len(tr.Body) != 1 {
		t.Errorf("try body: %d", len(tr.Body))
	}
	if tr.CatchName != "err" {
		t.Errorf("catch name: %q", tr.CatchName)
	}
	if len(tr.CatchBody) != 1 {
		t.Errorf("catch body: %d", len(tr.CatchBody))
	}
	if !tr.Rethrow {
		t.Error("bare throw must set Rethrow")
	}
	if len(tr.FinallyBody) != 1 {
		t.Errorf("finally body: %d", len(tr.FinallyBody))
	}
}

// ---------------------------------------------------------------------------
// Bindings and expressions
// ---------------------------------------------------------------------------

func TestParse_Bindings(t *testing.T) {
	prog := parseOK(t, `let files = ["a.go", "b.go"]
const depth = 2
files = []
`)
	let := prog.Statements[0].(*ast.Binding)
	if !let.Mutable || let.Name != "files" {
		t.Errorf("let: %+v", let)
	}
	if _, ok := let.Value.(*ast.ArrayExpression); !ok {
		t.Errorf("let value: %#v", let.Value)
	}

	con := prog.Statements[1].(*ast.Binding)
	if con.Mutable || con.Name != "depth" {
		t.Errorf("const: %+v", con)
	}

	assign := prog.Statements[2].(*ast.Assignment)
	if assign.Name != "files" {
		t.Errorf("assignment: %+v", assign)
	}
}

func TestParse_PipeExpression(t *testing.T) {
	prog := parseOK(t, `files | map: session "review {item}" | filter: **it found real problems** | reduce(all, one): all
`)
	es := prog.Statements[0].(*ast.ExpressionStatement)
	pipe := es.Expr.(*ast.PipeExpression)
	if src, ok := pipe.Source.(*ast.Identifier); !ok || src.Name != "files" {
		t.Fatalf("source: %#v", pipe.Source)
	}
	if len(pipe.Stages) != 3 {
		t.Fatalf("got %d stages, want 3", len(pipe.Stages))
	}
	if pipe.Stages[0].Kind != ast.StageMap {
		t.Errorf("stage 0: %+v", pipe.Stages[0])
	}
	if pipe.Stages[1].Kind != ast.StageFilter {
		t.Errorf("stage 1: %+v", pipe.Stages[1])
	}
	reduce := pipe.Stages[2]
	if reduce.Kind != ast.StageReduce || reduce.AccName != "all" || reduce.CurName != "one" {
		t.Errorf("stage 2: %+v", reduce)
	}
}

func TestParse_StringInterpolation(t *testing.T) {
	prog := parseOK(t, `session "fix {file} in {dir} {not a name}"
`)
	s := prog.Statements[0].(*ast.SessionStatement)
	lit := s.Prompt.(*ast.StringLiteral)

	var interps []string
	for _, seg := range lit.Segments {
		if seg.Interpolation {
			interps = append(interps, seg.Text)
		}
	}
	if len(interps) != 2 || interps[0] != "file" || interps[1] != "dir" {
		t.Errorf("interpolations: %v", interps)
	}
}

// ---------------------------------------------------------------------------
// Recovery
// ---------------------------------------------------------------------------

func TestParse_RecoversAtStatementBoundary(t *testing.T) {
	prog, errs := Parse("let = broken\nsession \"still here\"\n", "test.prose")
	if len(errs) == 0 {
		t.Fatal("expected parse errors")
	}
	found := false
	for _, stmt := range prog.Statements {
		if s, ok := stmt.(*ast.SessionStatement); ok {
			if lit, ok := s.Prompt.(*ast.StringLiteral); ok && lit.Value == "still here" {
				found = true
			}
		}
	}
	if !found {
		t.Error("parser must recover and keep parsing after a bad line")
	}
}

func TestParse_StrayDedentAtTopLevelTerminates(t *testing.T) {
	// A property value on its own deeper-indented line leaves a DEDENT
	// at top-level statement position after recovery. Parsing must
	// still terminate and report the bad line.
	src := "session \"x\":\n    context:\n        []\n"

	type result struct {
		prog *ast.Program
		errs []*ParseError
	}
	done := make(chan result, 1)
	go func() {
		prog, errs := Parse(src, "test.prose")
		done <- result{prog, errs}
	}()

	select {
	case res := <-done:
		if res.prog == nil {
			t.Fatal("got nil program")
		}
		if len(res.errs) == 0 {
			t.Error("expected parse errors for the misindented property value")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("parser did not return")
	}
}

func TestParse_AlwaysReturnsProgram(t *testing.T) {
	inputs := []string{
		"",
		"@@@@",
		"do:\n",
		"choice:\n    a: session \"x\"\n",
		"\"unterminated",
	}
	for _, src := range inputs {
		prog, _ := Parse(src, "test.prose")
		if prog == nil {
			t.Errorf("input %q: got nil program", src)
		}
	}
}

func TestParse_ErrorFormatting(t *testing.T) {
	_, errs := Parse("let = broken\n", "main.prose")
	if len(errs) == 0 {
		t.Fatal("expected errors")
	}
	msg := errs[0].Error()
	if !strings.HasPrefix(msg, "main.prose:1:") {
		t.Errorf("error must carry file:line:col, got %q", msg)
	}
	if !strings.Contains(msg, "error: ") {
		t.Errorf("got %q", msg)
	}
}

func TestParse_SpansWithinSource(t *testing.T) {
	src := `do:
    session "a"
    let x = 1
`
	prog := parseOK(t, src)
	ast.Walk(prog, func(n ast.Node) bool {
		span := n.Span()
		if span.Start.Offset < 0 || span.End.Offset > len(src) {
			t.Errorf("%T span %+v outside source bounds", n, span)
		}
		return true
	})
}
