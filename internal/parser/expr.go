package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/irl-dan/open-prose-sub003/internal/ast"
	"github.com/irl-dan/open-prose-sub003/internal/token"
)

// parseExpression parses a primary expression and any trailing pipe
// stages.
func (p *Parser) parseExpression() ast.Expression {
	left := p.parsePrimary()
	if left == nil {
		return nil
	}
	return p.continueExpression(left)
}

// continueExpression attaches pipe stages to an already-parsed operand.
func (p *Parser) continueExpression(left ast.Expression) ast.Expression {
	if !p.check(token.Pipe) {
		return left
	}

	pipe := &ast.PipeExpression{Source: left}
	start := left.Span().Start

	for p.match(token.Pipe) {
		stage := p.parsePipeStage()
		if stage == nil {
			break
		}
		pipe.Stages = append(pipe.Stages, stage)
	}

	pipe.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
	return pipe
}

// parsePipeStage parses: (map|filter|reduce|pmap) [(acc, cur)] ':' body
func (p *Parser) parsePipeStage() *ast.PipeStage {
	start := p.current().Span.Start
	stage := &ast.PipeStage{}

	switch p.current().Kind {
	case token.KwMap:
		stage.Kind = ast.StageMap
	case token.KwFilter:
		stage.Kind = ast.StageFilter
	case token.KwReduce:
		stage.Kind = ast.StageReduce
	case token.KwPmap:
		stage.Kind = ast.StagePmap
	default:
		p.addError(fmt.Sprintf("expected pipe stage, got %s", p.current().Kind),
			"stages are map, filter, reduce, or pmap")
		p.synchronize()
		return nil
	}
	p.advance()

	if stage.Kind == ast.StageReduce {
		p.expect(token.LParen, "'(' for reduce bindings")
		stage.AccName = p.expectIdent("accumulator name")
		p.expect(token.Comma, "',' between reduce bindings")
		stage.CurName = p.expectIdent("current-item name")
		p.expect(token.RParen, "')' after reduce bindings")
	}

	stage.Body = p.parseInlineOrBody()
	stage.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
	return stage
}

func (p *Parser) parsePrimary() ast.Expression {
	tok := p.current()

	switch tok.Kind {
	case token.String, token.TripleString:
		return p.parseStringLiteral()

	case token.Number:
		p.advance()
		value, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.errorAt(tok.Span, fmt.Sprintf("invalid number %q", tok.Value), "")
		}
		return &ast.NumberLiteral{Raw: tok.Value, Value: value, SourceSpan: tok.Span}

	case token.Ident:
		p.advance()
		return &ast.Identifier{Name: tok.Value, SourceSpan: tok.Span}

	case token.Discretion, token.MultilineDiscretion:
		return p.parseDiscretion()

	case token.LBracket:
		return p.parseArray()

	case token.LBrace:
		return p.parseObject()

	default:
		p.addError(fmt.Sprintf("expected expression, got %s", tok.Kind), "")
		p.synchronize()
		return nil
	}
}

func (p *Parser) parseStringLiteral() *ast.StringLiteral {
	tok := p.advance()
	return &ast.StringLiteral{
		Value:      tok.Value,
		Segments:   splitSegments(tok.Value),
		Triple:     tok.Kind == token.TripleString,
		SourceSpan: tok.Span,
	}
}

func (p *Parser) parseDiscretion() *ast.DiscretionNode {
	tok := p.advance()
	return &ast.DiscretionNode{
		Text:       strings.TrimSpace(tok.Value),
		Multiline:  tok.Kind == token.MultilineDiscretion,
		SourceSpan: tok.Span,
	}
}

func (p *Parser) parseArray() ast.Expression {
	start := p.expect(token.LBracket, "'['").Span.Start
	arr := &ast.ArrayExpression{}

	p.skipNewlines()
	for !p.check(token.RBracket) && !p.isAtEnd() {
		elem := p.parsePrimary()
		if elem == nil {
			break
		}
		arr.Elements = append(arr.Elements, elem)
		p.skipNewlines()
		if !p.match(token.Comma) {
			break
		}
		p.skipNewlines()
	}
	p.expect(token.RBracket, "']' to close array")

	arr.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
	return arr
}

// parseObject parses { key: value, shorthand, ... }.
func (p *Parser) parseObject() ast.Expression {
	start := p.expect(token.LBrace, "'{'").Span.Start
	obj := &ast.ObjectExpression{}

	p.skipNewlines()
	for !p.check(token.RBrace) && !p.isAtEnd() {
		fstart := p.current().Span.Start
		field := &ast.ObjectField{}
		field.Key = p.expectIdent("field name")
		if p.match(token.Colon) {
			field.Value = p.parsePrimary()
		}
		field.SourceSpan = token.Span{Start: fstart, End: p.previous().Span.End}
		obj.Fields = append(obj.Fields, field)
		p.skipNewlines()
		if !p.match(token.Comma) {
			break
		}
		p.skipNewlines()
	}
	p.expect(token.RBrace, "'}' to close object")

	obj.SourceSpan = token.Span{Start: start, End: p.previous().Span.End}
	return obj
}

// splitSegments splits a string value into literal and {name}
// interpolation segments. Braces without a valid identifier inside are
// treated as literal text.
func splitSegments(s string) []ast.Segment {
	var segs []ast.Segment
	lit := strings.Builder{}

	for i := 0; i < len(s); {
		if s[i] == '{' {
			if end := strings.IndexByte(s[i:], '}'); end > 1 {
				name := s[i+1 : i+end]
				if isInterpolationName(name) {
					if lit.Len() > 0 {
						segs = append(segs, ast.Segment{Text: lit.String()})
						lit.Reset()
					}
					segs = append(segs, ast.Segment{Text: name, Interpolation: true})
					i += end + 1
					continue
				}
			}
		}
		lit.WriteByte(s[i])
		i++
	}
	if lit.Len() > 0 {
		segs = append(segs, ast.Segment{Text: lit.String()})
	}
	return segs
}

func isInterpolationName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		ok := r == '_' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(i > 0 && r >= '0' && r <= '9')
		if !ok {
			return false
		}
	}
	return true
}

// exprText extracts the plain text of a string or identifier expression.
func exprText(e ast.Expression) string {
	switch x := e.(type) {
	case *ast.StringLiteral:
		return x.Value
	case *ast.Identifier:
		return x.Name
	}
	return ""
}

// exprStringList flattens an array expression of strings/identifiers.
func exprStringList(e ast.Expression) []string {
	arr, ok := e.(*ast.ArrayExpression)
	if !ok {
		if s := exprText(e); s != "" {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, elem := range arr.Elements {
		if s := exprText(elem); s != "" {
			out = append(out, s)
		}
	}
	return out
}
