package compiler

import (
	"fmt"
	"strings"

	"github.com/irl-dan/open-prose-sub003/internal/ast"
	"github.com/irl-dan/open-prose-sub003/internal/compiler/targets"
	"github.com/irl-dan/open-prose-sub003/internal/token"
)

// emitter renders a desugared program as canonical text. Emission is a
// pure function of the program and options: statement order, property
// order, and collected skill order all follow source order, so the same
// program always produces byte-identical output.
type emitter struct {
	sb     strings.Builder
	indent int
	line   int // next output line, 1-based
	sm     *SourceMap

	target   targets.Target
	preserve bool

	imports []string            // file-scope skills in source order
	agents  map[string][]string // agent name -> declared skills

	comments    []*ast.CommentStatement
	nextComment int
}

func emit(prog *ast.Program, tgt targets.Target, preserve bool) (string, *SourceMap) {
	e := &emitter{
		line:     1,
		sm:       &SourceMap{},
		target:   tgt,
		preserve: preserve,
		agents:   map[string][]string{},
		comments: prog.Comments,
	}

	ast.Walk(prog, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.ImportStatement:
			e.imports = append(e.imports, x.SkillName)
		case *ast.AgentDefinition:
			e.agents[x.Name] = x.Skills
		}
		return true
	})

	e.emitStatements(prog.Statements)
	e.flushComments(nil)
	return e.sb.String(), e.sm
}

// writef writes one logical line at the current indent and records its
// source span. Triple-quoted values may span physical lines; every
// physical line maps back to the same span.
func (e *emitter) writef(span token.Span, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	e.sb.WriteString(strings.Repeat("    ", e.indent))
	e.sb.WriteString(text)
	e.sb.WriteByte('\n')

	lines := strings.Count(text, "\n") + 1
	for i := 0; i < lines; i++ {
		e.sm.add(e.line+i, span)
	}
	e.line += lines
}

func (e *emitter) emitStatements(stmts []ast.Statement) {
	for _, stmt := range stmts {
		e.flushComments(stmt)
		e.emitStatement(stmt)
	}
}

// flushComments emits, when comments are preserved, every comment that
// appears before the given statement in the source. A nil statement
// flushes the rest.
func (e *emitter) flushComments(before ast.Statement) {
	if !e.preserve {
		return
	}
	for e.nextComment < len(e.comments) {
		c := e.comments[e.nextComment]
		if before != nil && !c.Span().Start.Before(before.Span().Start) {
			return
		}
		e.writef(c.Span(), "%s", c.Text)
		e.nextComment++
	}
}

func (e *emitter) emitStatement(stmt ast.Statement) {
	switch x := stmt.(type) {
	case *ast.CommentStatement:
		// Carried separately; flushComments owns comment placement.

	case *ast.ImportStatement:
		if !e.target.SkillsAsField() {
			return
		}
		if x.Source != "" {
			e.writef(x.Span(), "import %s from %s", quote(x.SkillName), quote(x.Source))
		} else {
			e.writef(x.Span(), "import %s", quote(x.SkillName))
		}

	case *ast.AgentDefinition:
		e.emitAgent(x)

	case *ast.SessionStatement:
		e.emitSession(x)

	case *ast.BlockDefinition:
		e.emitBlockDefinition(x)

	case *ast.DoBlock:
		e.emitDo(x)

	case *ast.ParallelBlock:
		e.emitParallel(x)

	case *ast.ChoiceBlock:
		e.emitChoice(x)

	case *ast.LoopBlock:
		e.emitLoop(x)

	case *ast.TryBlock:
		e.emitTry(x)

	case *ast.Binding:
		kw := "const"
		if x.Mutable {
			kw = "let"
		}
		e.writef(x.Span(), "%s %s = %s", kw, x.Name, e.renderExpr(x.Value))

	case *ast.Assignment:
		e.writef(x.Span(), "%s = %s", x.Name, e.renderExpr(x.Value))

	case *ast.ExpressionStatement:
		if pipe, ok := x.Expr.(*ast.PipeExpression); ok {
			e.emitPipe(pipe)
			return
		}
		e.writef(x.Span(), "%s", e.renderExpr(x.Expr))
	}
}

func (e *emitter) emitAgent(a *ast.AgentDefinition) {
	e.writef(a.Span(), "agent %s:", a.Name)
	e.indent++
	if a.Model != "" {
		e.writef(a.Span(), "model: %s", quote(a.Model))
	}
	if a.Prompt != nil {
		e.writef(a.Prompt.Span(), "prompt: %s", e.renderExpr(a.Prompt))
	}
	if e.target.SkillsAsField() && len(a.Skills) > 0 {
		e.writef(a.Span(), "skills: %s", quoteList(a.Skills))
	}
	if len(a.Permissions) > 0 {
		e.writef(a.Span(), "permissions: %s", quoteList(a.Permissions))
	}
	for _, prop := range a.Properties {
		e.writef(prop.Span(), "%s: %s", prop.Key, e.renderExpr(prop.Value))
	}
	e.indent--
}

func (e *emitter) emitSession(s *ast.SessionStatement) {
	header := e.sessionHeader(s)
	if len(s.Properties) == 0 {
		e.writef(s.Span(), "%s", header)
		return
	}
	e.writef(s.Span(), "%s:", header)
	e.indent++
	for _, prop := range s.Properties {
		e.writef(prop.Span(), "%s: %s", prop.Key, e.renderExpr(prop.Value))
	}
	e.indent--
}

func (e *emitter) sessionHeader(s *ast.SessionStatement) string {
	parts := []string{"session"}
	if s.Name != "" {
		parts = append(parts, s.Name)
	}
	if s.AgentRef != "" {
		parts = append(parts, ":", s.AgentRef)
	}
	if prompt := e.sessionPrompt(s); prompt != "" {
		parts = append(parts, prompt)
	}
	return strings.Join(parts, " ")
}

// sessionPrompt renders the prompt string with the target's skill
// instruction segment injected ahead of the author's text.
func (e *emitter) sessionPrompt(s *ast.SessionStatement) string {
	prefix := e.target.PromptPrefix(e.skillsFor(s))

	lit, _ := s.Prompt.(*ast.StringLiteral)
	if lit == nil {
		if prefix == "" {
			return ""
		}
		return quote(strings.TrimRight(prefix, " "))
	}
	if lit.Triple {
		return `"""` + prefix + lit.Value + `"""`
	}
	return quote(prefix + lit.Value)
}

// skillsFor returns the skills a session must load: file-scope imported
// skills plus the referenced agent's skills, in source order.
func (e *emitter) skillsFor(s *ast.SessionStatement) []string {
	skills := append([]string{}, e.imports...)
	if s.AgentRef != "" {
		skills = append(skills, e.agents[s.AgentRef]...)
	}
	return skills
}

func (e *emitter) emitBlockDefinition(b *ast.BlockDefinition) {
	if len(b.Params) == 0 {
		e.writef(b.Span(), "block %s:", b.Name)
	} else {
		params := make([]string, 0, len(b.Params))
		for _, p := range b.Params {
			if p.Default != nil {
				params = append(params, fmt.Sprintf("%s: %s", p.Name, e.renderExpr(p.Default)))
			} else {
				params = append(params, p.Name)
			}
		}
		e.writef(b.Span(), "block %s(%s):", b.Name, strings.Join(params, ", "))
	}
	e.indent++
	e.emitStatements(b.Body)
	e.indent--
}

func (e *emitter) emitDo(d *ast.DoBlock) {
	if d.Target != "" {
		if len(d.Args) == 0 {
			e.writef(d.Span(), "do %s", d.Target)
			return
		}
		args := make([]string, 0, len(d.Args))
		for _, arg := range d.Args {
			if arg.Name != "" {
				args = append(args, fmt.Sprintf("%s: %s", arg.Name, e.renderExpr(arg.Value)))
			} else {
				args = append(args, e.renderExpr(arg.Value))
			}
		}
		e.writef(d.Span(), "do %s(%s)", d.Target, strings.Join(args, ", "))
		return
	}

	e.writef(d.Span(), "do:")
	e.indent++
	e.emitStatements(d.Body)
	e.indent--
}

func (e *emitter) emitParallel(p *ast.ParallelBlock) {
	if p.ForVar != "" {
		e.writef(p.Span(), "parallel for %s in %s:", p.ForVar, e.renderExpr(p.ForCollection))
	} else {
		var mods []string
		switch p.Strategy {
		case ast.JoinFirst:
			mods = append(mods, quote(ast.JoinFirst))
		case ast.JoinAny:
			mods = append(mods, quote(ast.JoinAny), fmt.Sprintf("%d", p.Count))
		}
		if p.OnFail != "" {
			mods = append(mods, fmt.Sprintf("on_fail: %s", quote(p.OnFail)))
		}
		if len(mods) == 0 {
			e.writef(p.Span(), "parallel:")
		} else {
			e.writef(p.Span(), "parallel (%s):", strings.Join(mods, ", "))
		}
	}
	e.indent++
	e.emitStatements(p.Body)
	e.indent--
}

func (e *emitter) emitChoice(c *ast.ChoiceBlock) {
	criteria := ""
	if c.Criteria != nil {
		criteria = e.renderExpr(c.Criteria)
	}
	e.writef(c.Span(), "choice %s:", criteria)
	e.indent++
	for _, opt := range c.Options {
		e.writef(opt.Span(), "%s:", opt.Label)
		e.indent++
		e.emitStatements(opt.Body)
		e.indent--
	}
	e.indent--
}

func (e *emitter) emitLoop(l *ast.LoopBlock) {
	switch l.Kind {
	case ast.LoopRepeat:
		e.writef(l.Span(), "repeat %d:", l.Count)
	case ast.LoopForIn:
		e.writef(l.Span(), "for %s in %s:", l.Var, e.renderExpr(l.Collection))
	default:
		cond := l.ConditionText
		if d, ok := l.Condition.(*ast.DiscretionNode); ok {
			cond = e.renderExpr(d)
		}
		guard := ""
		if l.MaxIterations > 0 {
			guard = fmt.Sprintf(" (max: %d)", l.MaxIterations)
		}
		e.writef(l.Span(), "loop %s %s%s:", l.Kind, cond, guard)
	}
	e.indent++
	e.emitStatements(l.Body)
	e.indent--
}

func (e *emitter) emitTry(t *ast.TryBlock) {
	e.writef(t.Span(), "try:")
	e.indent++
	e.emitStatements(t.Body)
	e.indent--

	if len(t.CatchBody) > 0 || t.CatchName != "" || t.Rethrow {
		if t.CatchName != "" {
			e.writef(t.Span(), "catch %s:", t.CatchName)
		} else {
			e.writef(t.Span(), "catch:")
		}
		e.indent++
		e.emitStatements(t.CatchBody)
		if t.Rethrow {
			e.writef(t.Span(), "throw")
		}
		e.indent--
	}

	if len(t.FinallyBody) > 0 {
		e.writef(t.Span(), "finally:")
		e.indent++
		e.emitStatements(t.FinallyBody)
		e.indent--
	}
}

// emitPipe renders pipe sugar in its expanded form: each stage becomes
// an explicit block over a named iteration binding, and pmap carries
// the parallel fan-out modifier.
func (e *emitter) emitPipe(p *ast.PipeExpression) {
	e.writef(p.Span(), "pipe %s:", e.renderExpr(p.Source))
	e.indent++
	for _, stage := range p.Stages {
		switch stage.Kind {
		case ast.StageReduce:
			e.writef(stage.Span(), "reduce (%s, %s):", stage.AccName, stage.CurName)
		case ast.StagePmap:
			e.writef(stage.Span(), "pmap (item) parallel:")
		default:
			e.writef(stage.Span(), "%s (item):", stage.Kind)
		}
		e.indent++
		e.emitStatements(stage.Body)
		e.indent--
	}
	e.indent--
}

// ---------------------------------------------------------------------------
// Expression rendering
// ---------------------------------------------------------------------------

func (e *emitter) renderExpr(expr ast.Expression) string {
	switch x := expr.(type) {
	case nil:
		return ""
	case *ast.StringLiteral:
		if x.Triple {
			return `"""` + x.Value + `"""`
		}
		return quote(x.Value)
	case *ast.NumberLiteral:
		return x.Raw
	case *ast.Identifier:
		return x.Name
	case *ast.DiscretionNode:
		if x.Multiline {
			return "***" + x.Text + "***"
		}
		return "**" + x.Text + "**"
	case *ast.ArrayExpression:
		elems := make([]string, 0, len(x.Elements))
		for _, elem := range x.Elements {
			elems = append(elems, e.renderExpr(elem))
		}
		return "[" + strings.Join(elems, ", ") + "]"
	case *ast.ObjectExpression:
		fields := make([]string, 0, len(x.Fields))
		for _, f := range x.Fields {
			if f.Value == nil {
				fields = append(fields, f.Key)
			} else {
				fields = append(fields, fmt.Sprintf("%s: %s", f.Key, e.renderExpr(f.Value)))
			}
		}
		return "{" + strings.Join(fields, ", ") + "}"
	case *ast.PipeExpression:
		parts := []string{e.renderExpr(x.Source)}
		for _, stage := range x.Stages {
			parts = append(parts, e.renderStageInline(stage))
		}
		return strings.Join(parts, " | ")
	default:
		return ""
	}
}

func (e *emitter) renderStageInline(stage *ast.PipeStage) string {
	head := stage.Kind
	if stage.Kind == ast.StageReduce {
		head = fmt.Sprintf("reduce(%s, %s)", stage.AccName, stage.CurName)
	}
	if len(stage.Body) == 1 {
		if body := e.renderInlineStatement(stage.Body[0]); body != "" {
			return head + ": " + body
		}
	}
	return head
}

func (e *emitter) renderInlineStatement(stmt ast.Statement) string {
	switch x := stmt.(type) {
	case *ast.SessionStatement:
		return e.sessionHeader(x)
	case *ast.DoBlock:
		if x.Target != "" {
			return "do " + x.Target
		}
	case *ast.ExpressionStatement:
		return e.renderExpr(x.Expr)
	}
	return ""
}

// quote renders a string value in canonical double-quoted form.
func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func quoteList(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, item := range items {
		quoted = append(quoted, quote(item))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
