// Package parser implements the recursive descent parser for the prose
// language (.prose files). Parsing is total: it always returns a
// Program, accumulating errors and recovering at statement boundaries.
package parser

import (
	"fmt"
	"strconv"

	"github.com/irl-dan/open-prose-sub003/internal/ast"
	"github.com/irl-dan/open-prose-sub003/internal/lexer"
	"github.com/irl-dan/open-prose-sub003/internal/token"
)

// ParseError is a syntax error with position information.
type ParseError struct {
	File    string
	Span    token.Span
	Message string
	Hint    string
}

func (e *ParseError) Error() string {
	s := fmt.Sprintf("%s:%d:%d: error: %s", e.File, e.Span.Start.Line, e.Span.Start.Column, e.Message)
	if e.Hint != "" {
		s += "\n  hint: " + e.Hint
	}
	return s
}

// Parser holds the per-call parse state: token cursor, source text for
// raw-span extraction, and accumulated errors. No state survives a call.
type Parser struct {
	source   string
	file     string
	tokens   []token.Token
	pos      int
	errors   []*ParseError
	comments []*ast.CommentStatement
}

// Parse tokenizes and parses source, returning the program tree and
// every error found. Lexical errors are folded into the error list; the
// parse continues over the degraded token stream.
func Parse(source, file string) (*ast.Program, []*ParseError) {
	res := lexer.Tokenize(source, file, lexer.DefaultOptions())

	p := &Parser{
		source: source,
		file:   file,
		tokens: res.Tokens,
	}
	for _, le := range res.Errors {
		p.errors = append(p.errors, &ParseError{
			File: le.File, Span: le.Span, Message: le.Message, Hint: le.Hint,
		})
	}

	prog := p.parseProgram()
	return prog, p.errors
}

func (p *Parser) parseProgram() *ast.Program {
	prog := &ast.Program{Path: p.file}
	start := p.current().Span.Start

	for !p.isAtEnd() {
		p.skipNewlines()
		if p.isAtEnd() {
			break
		}
		// Recovery inside a block can leave stray INDENT/DEDENT tokens
		// at top level; synchronize stops at DEDENT, so they must be
		// consumed here or the statement loop makes no progress.
		if p.check(token.Indent) || p.check(token.Dedent) {
			p.addError("unexpected indentation at top level",
				"top-level statements start at column one")
			for p.check(token.Indent) || p.check(token.Dedent) || p.check(token.Newline) {
				p.advance()
			}
			continue
		}
		stmt := p.parseStatement()
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
	}

	prog.Comments = p.comments
	prog.SourceSpan = token.Span{Start: start, End: p.current().Span.End}
	return prog
}

// parseStatement dispatches on the leading token. Unrecognized tokens
// are reported once and parsing resumes at the next statement boundary.
func (p *Parser) parseStatement() ast.Statement {
	tok := p.current()

	switch tok.Kind {
	case token.Comment:
		return p.parseCommentStatement()
	case token.KwImport:
		return p.parseImport()
	case token.KwAgent:
		return p.parseAgent()
	case token.KwBlock:
		return p.parseBlockDefinition()
	case token.KwSession:
		return p.parseSessionOrChain()
	case token.KwDo:
		return p.parseDo()
	case token.KwParallel:
		return p.parseParallel()
	case token.KwChoice:
		return p.parseChoice()
	case token.KwLoop, token.KwRepeat, token.KwFor:
		return p.parseLoop()
	case token.KwTry:
		return p.parseTry()
	case token.KwLet, token.KwConst:
		return p.parseBinding()
	case token.Ident:
		return p.parseAssignmentOrExpression()
	case token.String, token.TripleString:
		return p.parseChainOrExpression()
	case token.Number, token.LBracket, token.LBrace:
		return p.parseExpressionStatement()
	default:
		p.addError(fmt.Sprintf("unexpected token %s at start of statement", tok.Kind),
			"expected a statement (session, do, parallel, choice, loop, try, let, ...)")
		p.synchronize()
		return nil
	}
}

func (p *Parser) parseCommentStatement() ast.Statement {
	tok := p.advance()
	c := &ast.CommentStatement{Text: tok.Value, SourceSpan: tok.Span}
	p.comments = append(p.comments, c)
	// Comment-only lines carry no NEWLINE token; trailing comments do.
	p.match(token.Newline)
	return c
}

// parseImport parses: import "skill" [from "source"]
func (p *Parser) parseImport() ast.Statement {
	start := p.advance().Span.Start

	imp := &ast.ImportStatement{}
	imp.SkillName = p.expectString("skill name")

	if p.check(token.Ident) && p.current().Value == "from" {
		p.advance()
		imp.Source = p.expectString("import source")
	}

	imp.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
	p.endStatement()
	return imp
}

// parseAgent parses: agent NAME : INDENT properties DEDENT
func (p *Parser) parseAgent() ast.Statement {
	start := p.advance().Span.Start

	a := &ast.AgentDefinition{}
	a.Name = p.expectIdent("agent name")

	props := p.parsePropertyBody()
	for _, prop := range props {
		switch prop.Key {
		case "model":
			a.Model = exprText(prop.Value)
		case "prompt":
			a.Prompt = prop.Value
		case "skills":
			a.Skills = exprStringList(prop.Value)
		case "permissions":
			a.Permissions = exprStringList(prop.Value)
		default:
			a.Properties = append(a.Properties, prop)
		}
	}

	a.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
	return a
}

// parseBlockDefinition parses: block NAME [(params)] : body
func (p *Parser) parseBlockDefinition() ast.Statement {
	start := p.advance().Span.Start

	b := &ast.BlockDefinition{}
	b.Name = p.expectIdent("block name")

	if p.match(token.LParen) {
		for !p.check(token.RParen) && !p.isAtEnd() {
			pstart := p.current().Span.Start
			param := &ast.Parameter{Name: p.expectIdent("parameter name")}
			if p.match(token.Colon) {
				param.Default = p.parseExpression()
			}
			param.SourceSpan = token.Span{Start: pstart, End: p.previous().Span.End}
			b.Params = append(b.Params, param)
			if !p.match(token.Comma) {
				break
			}
		}
		p.expect(token.RParen, "')' after parameter list")
	}

	b.Body = p.parseBody()
	b.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
	return b
}

// parseSessionOrChain parses a session statement, continuing into an
// arrow chain when a -> follows the session clause.
func (p *Parser) parseSessionOrChain() ast.Statement {
	start := p.current().Span.Start
	s := p.parseSessionClause()

	if p.check(token.Arrow) {
		return p.parseChain(s, start)
	}

	// Optional property block: a colon followed by an indented block.
	if p.check(token.Colon) {
		s.Properties = p.parsePropertyBody()
		s.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
		return s
	}

	s.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
	p.endStatement()
	return s
}

// parseSessionClause parses the inline part of a session statement:
//
//	session [name] [: agent] [prompt]
//
// It never consumes the line terminator, so it can participate in arrow
// chains and pipe stages.
func (p *Parser) parseSessionClause() *ast.SessionStatement {
	start := p.expect(token.KwSession, "'session'").Span.Start
	s := &ast.SessionStatement{}

	if p.check(token.Ident) {
		s.Name = p.advance().Value
	}

	// ": agent" applies only when an identifier follows on the same
	// line; a colon before a newline introduces the property block.
	if p.check(token.Colon) && p.peekKind(1) == token.Ident {
		p.advance()
		s.AgentRef = p.advance().Value
	}

	switch p.current().Kind {
	case token.String, token.TripleString:
		s.Prompt = p.parseStringLiteral()
	case token.Discretion, token.MultilineDiscretion:
		p.addError("discretion marker is not valid as a session prompt",
			"discretion conditions belong in 'loop until', 'loop while', and 'choice' headers")
		p.advance()
	}

	s.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
	return s
}

// parseChain parses the remainder of an arrow chain. The parser records
// the chain order in a DoBlock; the compiler adds implicit-context edges.
func (p *Parser) parseChain(first ast.Statement, start token.Location) ast.Statement {
	chain := &ast.DoBlock{FromChain: true}
	chain.Body = append(chain.Body, first)

	for p.match(token.Arrow) {
		switch p.current().Kind {
		case token.KwSession:
			s := p.parseSessionClause()
			chain.Body = append(chain.Body, s)
		case token.String, token.TripleString:
			lit := p.parseStringLiteral()
			chain.Body = append(chain.Body, &ast.SessionStatement{
				Prompt:     lit,
				SourceSpan: lit.Span(),
			})
		case token.KwDo:
			chain.Body = append(chain.Body, p.parseDoInvocation())
		case token.Ident:
			tok := p.advance()
			chain.Body = append(chain.Body, &ast.DoBlock{
				Target:     tok.Value,
				SourceSpan: tok.Span,
			})
		default:
			p.addError(fmt.Sprintf("unexpected token %s in arrow chain", p.current().Kind),
				"chain elements are sessions, prompt strings, or block names")
			p.synchronize()
			chain.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
			return chain
		}
	}

	// A trailing property block binds to the last session in the chain.
	if p.check(token.Colon) && len(chain.Body) > 0 {
		if last, ok := chain.Body[len(chain.Body)-1].(*ast.SessionStatement); ok {
			last.Properties = p.parsePropertyBody()
			last.SourceSpan = token.Span{Start: last.SourceSpan.Start, End: p.previous().Span.End}
			chain.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
			return chain
		}
	}

	chain.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
	p.endStatement()
	return chain
}

// parseChainOrExpression handles a statement starting with a string
// literal: either an arrow chain of prompt sessions or a bare
// expression statement.
func (p *Parser) parseChainOrExpression() ast.Statement {
	start := p.current().Span.Start
	lit := p.parseStringLiteral()

	if p.check(token.Arrow) {
		first := &ast.SessionStatement{Prompt: lit, SourceSpan: lit.Span()}
		return p.parseChain(first, start)
	}

	expr := p.continueExpression(lit)
	p.endStatement()
	return &ast.ExpressionStatement{
		Expr:       expr,
		SourceSpan: token.Span{Start: start, End: p.previous().Span.End},
	}
}

// parseDo parses either an anonymous sequential block (do:) or a named
// block invocation (do name, do name(args)), which may begin a chain.
func (p *Parser) parseDo() ast.Statement {
	if p.peekKind(1) == token.Colon {
		start := p.advance().Span.Start
		d := &ast.DoBlock{}
		d.Body = p.parseBody()
		d.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
		return d
	}

	start := p.current().Span.Start
	d := p.parseDoInvocation()
	if p.check(token.Arrow) {
		return p.parseChain(d, start)
	}
	p.endStatement()
	return d
}

// parseDoInvocation parses: do NAME [(args)] without a terminator.
func (p *Parser) parseDoInvocation() *ast.DoBlock {
	start := p.expect(token.KwDo, "'do'").Span.Start
	d := &ast.DoBlock{}
	d.Target = p.expectIdent("block name after 'do'")

	if p.match(token.LParen) {
		for !p.check(token.RParen) && !p.isAtEnd() {
			astart := p.current().Span.Start
			arg := &ast.Argument{}
			if p.check(token.Ident) && p.peekKind(1) == token.Colon {
				arg.Name = p.advance().Value
				p.advance() // colon
			}
			arg.Value = p.parseExpression()
			arg.SourceSpan = token.Span{Start: astart, End: p.previous().Span.End}
			d.Args = append(d.Args, arg)
			if !p.match(token.Comma) {
				break
			}
		}
		p.expect(token.RParen, "')' after arguments")
	}

	d.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
	return d
}

// parseParallel parses the parallel block forms:
//
//	parallel : body
//	parallel ("first") : body
//	parallel ("any", N) : body
//	parallel (on_fail: "continue") : body
//	parallel for x in expr : body
func (p *Parser) parseParallel() ast.Statement {
	start := p.advance().Span.Start
	pb := &ast.ParallelBlock{Strategy: ast.JoinAll}

	if p.check(token.KwFor) {
		p.advance()
		pb.ForVar = p.expectIdent("loop variable")
		p.expect(token.KwIn, "'in'")
		pb.ForCollection = p.parseExpression()
	} else if p.match(token.LParen) {
		for !p.check(token.RParen) && !p.isAtEnd() {
			switch p.current().Kind {
			case token.String:
				mod := p.advance()
				switch mod.Value {
				case ast.JoinFirst:
					pb.Strategy = ast.JoinFirst
				case ast.JoinAny:
					pb.Strategy = ast.JoinAny
				default:
					p.errorAt(mod.Span, fmt.Sprintf("unknown join strategy %q", mod.Value),
						`valid strategies: "first", "any"`)
				}
			case token.Number:
				tok := p.advance()
				n, err := strconv.Atoi(tok.Value)
				if err != nil {
					p.errorAt(tok.Span, fmt.Sprintf("invalid branch count %q", tok.Value), "")
				}
				pb.Count = n
			case token.Ident:
				if p.current().Value == "on_fail" && p.peekKind(1) == token.Colon {
					p.advance()
					p.advance()
					pb.OnFail = exprText(p.parseExpression())
				} else {
					p.addError(fmt.Sprintf("unexpected modifier %q in parallel header", p.current().Value),
						`modifiers are a join strategy, a count, or on_fail: "policy"`)
					p.advance()
				}
			default:
				p.addError(fmt.Sprintf("unexpected token %s in parallel header", p.current().Kind), "")
				p.advance()
			}
			if !p.match(token.Comma) {
				break
			}
		}
		p.expect(token.RParen, "')' after parallel modifiers")
	}

	pb.Body = p.parseBody()
	pb.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
	return pb
}

// parseChoice parses: choice DISCRETION : INDENT options DEDENT where
// each option is label : (inline statement | indented block).
func (p *Parser) parseChoice() ast.Statement {
	start := p.advance().Span.Start
	c := &ast.ChoiceBlock{}

	switch p.current().Kind {
	case token.Discretion, token.MultilineDiscretion:
		c.Criteria = p.parseDiscretion()
	default:
		p.addError("choice requires discretion criteria",
			"add **criteria** after 'choice'")
	}

	p.expect(token.Colon, "':' after choice criteria")
	p.expect(token.Newline, "newline after ':'")
	if !p.match(token.Indent) {
		p.addError("expected indented option list", "")
		c.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
		return c
	}

	for !p.check(token.Dedent) && !p.isAtEnd() {
		p.skipNewlines()
		if p.check(token.Dedent) {
			break
		}
		if p.check(token.Comment) {
			p.parseCommentStatement()
			continue
		}
		opt := p.parseChoiceOption()
		if opt != nil {
			c.Options = append(c.Options, opt)
		}
	}
	p.expect(token.Dedent, "end of choice options")

	c.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
	return c
}

func (p *Parser) parseChoiceOption() *ast.ChoiceOption {
	start := p.current().Span.Start
	opt := &ast.ChoiceOption{}

	switch p.current().Kind {
	case token.Ident:
		opt.Label = p.advance().Value
	case token.String:
		opt.Label = p.advance().Value
	default:
		p.addError(fmt.Sprintf("expected option label, got %s", p.current().Kind),
			"each choice option is 'label: statement'")
		p.synchronize()
		return nil
	}

	opt.Body = p.parseInlineOrBody()
	opt.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
	return opt
}

// parseLoop parses the loop family. until/while are soft keywords after
// 'loop'; repeat and for also stand alone.
func (p *Parser) parseLoop() ast.Statement {
	start := p.current().Span.Start

	if p.check(token.KwLoop) {
		p.advance()
		switch {
		case p.check(token.KwRepeat):
			return p.parseRepeat(start)
		case p.check(token.KwFor):
			return p.parseForIn(start)
		case p.check(token.Ident) && (p.current().Value == "until" || p.current().Value == "while"):
			return p.parseConditionLoop(start, p.advance().Value)
		default:
			p.addError(fmt.Sprintf("unexpected token %s after 'loop'", p.current().Kind),
				"expected 'repeat', 'for', 'until', or 'while'")
			p.synchronize()
			return nil
		}
	}

	if p.check(token.KwRepeat) {
		p.advance()
		return p.parseRepeat(start)
	}
	p.expect(token.KwFor, "'for'")
	return p.parseForIn(start)
}

func (p *Parser) parseRepeat(start token.Location) ast.Statement {
	l := &ast.LoopBlock{Kind: ast.LoopRepeat}

	tok := p.expect(token.Number, "repeat count")
	if tok.Kind == token.Number {
		n, err := strconv.Atoi(tok.Value)
		if err != nil {
			p.errorAt(tok.Span, fmt.Sprintf("invalid repeat count %q", tok.Value), "")
		}
		l.Count = n
	}

	l.Body = p.parseBody()
	l.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
	return l
}

func (p *Parser) parseForIn(start token.Location) ast.Statement {
	l := &ast.LoopBlock{Kind: ast.LoopForIn}
	l.Var = p.expectIdent("loop variable")
	p.expect(token.KwIn, "'in'")
	l.Collection = p.parseExpression()
	l.Body = p.parseBody()
	l.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
	return l
}

func (p *Parser) parseConditionLoop(start token.Location, kind string) ast.Statement {
	l := &ast.LoopBlock{Kind: kind}

	switch p.current().Kind {
	case token.Discretion, token.MultilineDiscretion:
		l.Condition = p.parseDiscretion()
	case token.Colon, token.Newline, token.EOF:
		p.addError(fmt.Sprintf("loop %s requires a condition", kind),
			"add a **discretion condition** or a boolean expression")
	default:
		condStart := p.current().Span.Start
		l.Condition = p.parseExpression()
		l.ConditionText = p.rawText(token.Span{Start: condStart, End: p.previous().Span.End})
	}

	// Optional (max: N) guard, mirroring parallel modifier syntax.
	if p.match(token.LParen) {
		if p.check(token.Ident) && p.current().Value == "max" {
			p.advance()
			p.expect(token.Colon, "':' after 'max'")
			tok := p.expect(token.Number, "max iteration count")
			if tok.Kind == token.Number {
				n, err := strconv.Atoi(tok.Value)
				if err != nil {
					p.errorAt(tok.Span, fmt.Sprintf("invalid max iteration count %q", tok.Value), "")
				}
				l.MaxIterations = n
			}
		} else {
			p.addError("expected 'max: N' in loop guard", "")
		}
		p.expect(token.RParen, "')' after loop guard")
	}

	l.Body = p.parseBody()
	l.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
	return l
}

// parseTry parses try/catch/finally. A bare 'throw' line inside catch
// marks the block as rethrowing.
func (p *Parser) parseTry() ast.Statement {
	start := p.advance().Span.Start
	t := &ast.TryBlock{}
	t.Body = p.parseBody()

	p.skipNewlines()
	if p.check(token.KwCatch) {
		p.advance()
		if p.check(token.Ident) {
			t.CatchName = p.advance().Value
		}
		p.expect(token.Colon, "':' after catch")
		p.expect(token.Newline, "newline after ':'")
		if p.match(token.Indent) {
			for !p.check(token.Dedent) && !p.isAtEnd() {
				p.skipNewlines()
				if p.check(token.Dedent) {
					break
				}
				if p.check(token.KwThrow) {
					p.advance()
					t.Rethrow = true
					p.endStatement()
					continue
				}
				stmt := p.parseStatement()
				if stmt != nil {
					t.CatchBody = append(t.CatchBody, stmt)
				}
			}
			p.expect(token.Dedent, "end of catch block")
		} else {
			p.addError("expected indented catch block", "")
		}
	}

	p.skipNewlines()
	if p.check(token.KwFinally) {
		p.advance()
		t.FinallyBody = p.parseBody()
	}

	t.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
	return t
}

// parseBinding parses: (let|const) NAME = expression
func (p *Parser) parseBinding() ast.Statement {
	kw := p.advance()
	b := &ast.Binding{Mutable: kw.Kind == token.KwLet}
	b.Name = p.expectIdent("binding name")
	p.expect(token.Equals, "'=' in binding")
	b.Value = p.parseExpression()
	b.SourceSpan = token.Span{Start: kw.Span.Start, End: p.previous().Span.End}
	p.endStatement()
	return b
}

// parseAssignmentOrExpression disambiguates 'x = e' from a bare
// expression or pipe statement starting with an identifier.
func (p *Parser) parseAssignmentOrExpression() ast.Statement {
	if p.peekKind(1) == token.Equals {
		start := p.current().Span.Start
		a := &ast.Assignment{Name: p.advance().Value}
		p.advance() // =
		a.Value = p.parseExpression()
		a.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
		p.endStatement()
		return a
	}
	return p.parseExpressionStatement()
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	start := p.current().Span.Start
	expr := p.parseExpression()
	p.endStatement()
	return &ast.ExpressionStatement{
		Expr:       expr,
		SourceSpan: token.Span{Start: start, End: p.previous().Span.End},
	}
}

// ---------------------------------------------------------------------------
// Bodies and properties
// ---------------------------------------------------------------------------

// parseBody parses: ':' NEWLINE INDENT statements DEDENT
func (p *Parser) parseBody() []ast.Statement {
	p.expect(token.Colon, "':' to introduce a block")
	p.expect(token.Newline, "newline after ':'")
	if !p.match(token.Indent) {
		p.addError("expected indented block", "indent the block body under the ':'")
		return nil
	}

	var stmts []ast.Statement
	for !p.check(token.Dedent) && !p.isAtEnd() {
		p.skipNewlines()
		if p.check(token.Dedent) {
			break
		}
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	p.expect(token.Dedent, "end of block")
	return stmts
}

// parseInlineOrBody parses either ': statement' on one line or a full
// indented block. Used by choice options and pipe stages.
func (p *Parser) parseInlineOrBody() []ast.Statement {
	p.expect(token.Colon, "':'")
	if p.check(token.Newline) {
		p.advance()
		if !p.match(token.Indent) {
			p.addError("expected indented block", "")
			return nil
		}
		var stmts []ast.Statement
		for !p.check(token.Dedent) && !p.isAtEnd() {
			p.skipNewlines()
			if p.check(token.Dedent) {
				break
			}
			stmt := p.parseStatement()
			if stmt != nil {
				stmts = append(stmts, stmt)
			}
		}
		p.expect(token.Dedent, "end of block")
		return stmts
	}

	stmt := p.parseInlineStatement()
	if stmt == nil {
		return nil
	}
	return []ast.Statement{stmt}
}

// parseInlineStatement parses a single statement that must not consume
// its line terminator (pipe stages and inline choice options share the
// line with what follows).
func (p *Parser) parseInlineStatement() ast.Statement {
	start := p.current().Span.Start
	switch p.current().Kind {
	case token.KwSession:
		s := p.parseSessionClause()
		return s
	case token.KwDo:
		if p.peekKind(1) == token.Ident {
			return p.parseDoInvocation()
		}
		p.addError("anonymous 'do:' blocks must be indented", "")
		p.synchronize()
		return nil
	default:
		// A '|' after the expression belongs to the enclosing pipe,
		// so stage bodies parse a primary only, never a nested pipe.
		expr := p.parsePrimary()
		if expr == nil {
			return nil
		}
		return &ast.ExpressionStatement{
			Expr:       expr,
			SourceSpan: token.Span{Start: start, End: p.previous().Span.End},
		}
	}
}

// parsePropertyBody parses ':' NEWLINE INDENT (key ':' value NEWLINE)*
// DEDENT, the property block shared by agents and sessions.
func (p *Parser) parsePropertyBody() []*ast.Property {
	p.expect(token.Colon, "':' to introduce properties")
	p.expect(token.Newline, "newline after ':'")
	if !p.match(token.Indent) {
		p.addError("expected indented property block", "")
		return nil
	}

	var props []*ast.Property
	for !p.check(token.Dedent) && !p.isAtEnd() {
		p.skipNewlines()
		if p.check(token.Dedent) {
			break
		}
		if p.check(token.Comment) {
			p.parseCommentStatement()
			continue
		}
		prop := p.parseProperty()
		if prop != nil {
			props = append(props, prop)
		}
	}
	p.expect(token.Dedent, "end of property block")
	return props
}

func (p *Parser) parseProperty() *ast.Property {
	tok := p.current()

	var key string
	switch {
	case tok.Kind == token.Ident:
		key = tok.Value
	case token.IsKeyword(tok.Kind):
		// retry, backoff and friends double as property keys.
		key = tok.Value
	default:
		p.addError(fmt.Sprintf("expected property key, got %s", tok.Kind), "")
		p.synchronize()
		return nil
	}
	p.advance()

	p.expect(token.Colon, "':' after property key")
	value := p.parseExpression()
	prop := &ast.Property{
		Key:        key,
		Value:      value,
		SourceSpan: token.Span{Start: tok.Span.Start, End: p.previous().Span.End},
	}
	p.endStatement()
	return prop
}

// ---------------------------------------------------------------------------
// Cursor helpers
// ---------------------------------------------------------------------------

func (p *Parser) current() token.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *Parser) previous() token.Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

func (p *Parser) peekKind(offset int) token.Kind {
	i := p.pos + offset
	if i >= len(p.tokens) {
		return token.EOF
	}
	return p.tokens[i].Kind
}

func (p *Parser) advance() token.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) check(kind token.Kind) bool {
	return p.current().Kind == kind
}

func (p *Parser) match(kind token.Kind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) isAtEnd() bool {
	return p.current().Kind == token.EOF
}

func (p *Parser) expect(kind token.Kind, what string) token.Token {
	if p.check(kind) {
		return p.advance()
	}
	p.addError(fmt.Sprintf("expected %s, got %s", what, p.current().Kind), "")
	return p.current()
}

func (p *Parser) expectIdent(what string) string {
	if p.check(token.Ident) {
		return p.advance().Value
	}
	p.addError(fmt.Sprintf("expected %s, got %s", what, p.current().Kind), "")
	return ""
}

func (p *Parser) expectString(what string) string {
	if p.check(token.String) || p.check(token.TripleString) {
		return p.advance().Value
	}
	p.addError(fmt.Sprintf("expected %s, got %s", what, p.current().Kind), "")
	return ""
}

func (p *Parser) skipNewlines() {
	for p.check(token.Newline) {
		p.advance()
	}
}

// endStatement consumes the statement terminator, tolerating trailing
// comments and end-of-block positions.
func (p *Parser) endStatement() {
	if p.check(token.Comment) {
		p.parseCommentStatement()
		return
	}
	if p.check(token.Newline) {
		p.advance()
		return
	}
	if p.check(token.Dedent) || p.isAtEnd() {
		return
	}
	p.addError(fmt.Sprintf("unexpected token %s after statement", p.current().Kind),
		"each statement ends at the end of its line")
	p.synchronize()
}

// synchronize skips to the next statement boundary so one bad line
// yields one diagnostic.
func (p *Parser) synchronize() {
	for !p.isAtEnd() {
		if p.match(token.Newline) {
			return
		}
		if p.check(token.Dedent) {
			return
		}
		p.advance()
	}
}

func (p *Parser) addError(msg, hint string) {
	p.errorAt(p.current().Span, msg, hint)
}

func (p *Parser) errorAt(span token.Span, msg, hint string) {
	p.errors = append(p.errors, &ParseError{
		File: p.file, Span: span, Message: msg, Hint: hint,
	})
}

// rawText extracts the original source text under a span.
func (p *Parser) rawText(span token.Span) string {
	start, end := span.Start.Offset, span.End.Offset
	if start < 0 || end > len(p.source) || start > end {
		return ""
	}
	return p.source[start:end]
}
