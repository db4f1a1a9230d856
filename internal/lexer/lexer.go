// Package lexer tokenizes prose (.prose) source text. The scanner is
// total: it always returns a token stream ending in exactly one EOF and
// accumulates lexical errors instead of aborting.
package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/irl-dan/open-prose-sub003/internal/token"
)

// Error is a lexical error with position information.
type Error struct {
	File    string
	Span    token.Span
	Message string
	Hint    string
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s:%d:%d: error: %s", e.File, e.Span.Start.Line, e.Span.Start.Column, e.Message)
	if e.Hint != "" {
		s += "\n  hint: " + e.Hint
	}
	return s
}

// Options configures tokenization.
type Options struct {
	// IncludeComments keeps COMMENT tokens in the stream. Comments are
	// trivia but the compiler needs them to report stripped-comment counts.
	IncludeComments bool
	// IncludeTrivia keeps trivia tokens even when IncludeComments is unset.
	IncludeTrivia bool
}

// DefaultOptions retains comments, matching the compiler's needs.
func DefaultOptions() Options {
	return Options{IncludeComments: true}
}

// Result is the outcome of tokenizing one source text.
type Result struct {
	Tokens []token.Token
	Errors []*Error
}

// tabStop is the column multiple a tab advances the indent to.
const tabStop = 4

// Lexer holds the per-call scanner state. All mutable state lives here;
// a Lexer is used for one Tokenize call and discarded.
type Lexer struct {
	input string
	file  string
	opts  Options

	pos  int
	line int
	col  int

	start token.Location

	indents     []int
	atLineStart bool

	tokens []token.Token
	errors []*Error
}

// Tokenize scans source and returns all tokens plus any lexical errors.
// It never panics and never returns early: the stream always ends in EOF
// with balanced Indent/Dedent tokens.
func Tokenize(source, file string, opts Options) Result {
	l := &Lexer{
		input:       source,
		file:        file,
		opts:        opts,
		line:        1,
		col:         1,
		indents:     []int{0},
		atLineStart: true,
	}
	l.run()
	return Result{Tokens: l.tokens, Errors: l.errors}
}

func (l *Lexer) run() {
	for l.pos < len(l.input) {
		if l.atLineStart {
			l.handleLineStart()
			continue
		}
		l.scanToken()
	}

	// Close the final logical line if it carried tokens.
	if !l.atLineStart {
		l.emitAt(token.Newline, "", l.here())
	}
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.emitAt(token.Dedent, "", l.here())
	}
	l.emitAt(token.EOF, "", l.here())
}

// handleLineStart measures indentation at the start of a physical line.
// Blank lines and comment-only lines are skipped without touching the
// indent stack.
func (l *Lexer) handleLineStart() {
	width := 0
	for l.pos < len(l.input) {
		switch l.peek() {
		case ' ':
			width++
			l.advance()
		case '\t':
			width += tabStop - width%tabStop
			l.advance()
		case '\r':
			l.advance()
		default:
			goto measured
		}
	}
measured:
	if l.pos >= len(l.input) {
		return
	}

	switch l.peek() {
	case '\n':
		l.advance()
		return
	case '#':
		l.mark()
		l.scanComment()
		if l.pos < len(l.input) && l.peek() == '\n' {
			l.advance()
		}
		return
	}

	top := l.indents[len(l.indents)-1]
	at := l.here()
	switch {
	case width > top:
		l.indents = append(l.indents, width)
		l.emitAt(token.Indent, "", at)
	case width < top:
		for len(l.indents) > 1 && l.indents[len(l.indents)-1] > width {
			l.indents = l.indents[:len(l.indents)-1]
			l.emitAt(token.Dedent, "", at)
		}
		if l.indents[len(l.indents)-1] != width {
			l.errorAt(at, "inconsistent indentation",
				fmt.Sprintf("no enclosing block is indented by %d columns", width))
		}
	}
	l.atLineStart = false
}

func (l *Lexer) scanToken() {
	ch := l.peek()

	switch {
	case ch == ' ' || ch == '\t' || ch == '\r':
		l.advance()
	case ch == '\n':
		l.mark()
		l.advance()
		l.emit(token.Newline, "")
		l.atLineStart = true
	case ch == '#':
		l.mark()
		l.scanComment()
	case ch == '"':
		l.mark()
		if l.hasPrefix(`"""`) {
			l.scanTripleString()
		} else {
			l.scanString()
		}
	case ch == '*':
		l.mark()
		switch {
		case l.hasPrefix("***"):
			l.scanMultilineDiscretion()
		case l.hasPrefix("**"):
			l.scanDiscretion()
		default:
			l.advance()
			l.error(fmt.Sprintf("unexpected character %q", ch), "")
		}
	case isDigit(ch):
		l.mark()
		l.scanNumber()
	case ch == '-':
		l.mark()
		if l.peekAt(1) == '>' {
			l.advance()
			l.advance()
			l.emit(token.Arrow, "->")
		} else {
			l.scanIdentOrKeyword()
		}
	case isIdentStart(ch):
		l.mark()
		l.scanIdentOrKeyword()
	default:
		l.mark()
		if kind, ok := punct[ch]; ok {
			l.advance()
			l.emit(kind, string(ch))
			return
		}
		l.advance()
		l.error(fmt.Sprintf("unexpected character %q", ch), "")
	}
}

var punct = map[rune]token.Kind{
	':': token.Colon,
	',': token.Comma,
	'(': token.LParen,
	')': token.RParen,
	'[': token.LBracket,
	']': token.RBracket,
	'{': token.LBrace,
	'}': token.RBrace,
	'|': token.Pipe,
	'=': token.Equals,
}

func (l *Lexer) scanComment() {
	from := l.pos
	for l.pos < len(l.input) && l.peek() != '\n' {
		l.advance()
	}
	if l.opts.IncludeComments || l.opts.IncludeTrivia {
		tok := l.makeToken(token.Comment, l.input[from:l.pos])
		tok.Trivia = true
		l.tokens = append(l.tokens, tok)
	}
}

func (l *Lexer) scanString() {
	l.advance() // opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.peek()
		switch {
		case ch == '"':
			l.advance()
			l.emit(token.String, sb.String())
			return
		case ch == '\n':
			// Do not consume: the newline still terminates the line.
			l.error("unterminated string",
				`single-quoted strings may not span lines; use """ ... """`)
			l.emit(token.String, sb.String())
			return
		case ch == '\\':
			l.advance()
			if l.pos >= len(l.input) {
				l.error("unterminated string escape", "")
				l.emit(token.String, sb.String())
				return
			}
			esc := l.peek()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\', '"', '#':
				sb.WriteRune(esc)
			default:
				sb.WriteRune(esc)
			}
			l.advance()
		default:
			sb.WriteRune(ch)
			l.advance()
		}
	}
	l.error("unterminated string", "")
	l.emit(token.String, sb.String())
}

func (l *Lexer) scanTripleString() {
	l.advanceN(3)
	from := l.pos
	for l.pos < len(l.input) {
		if l.hasPrefix(`"""`) {
			raw := l.input[from:l.pos]
			l.advanceN(3)
			l.emit(token.TripleString, normalizeNewlines(raw))
			return
		}
		l.advance()
	}
	l.error("unterminated triple-quoted string", `add a closing """`)
	l.emit(token.TripleString, normalizeNewlines(l.input[from:l.pos]))
}

func (l *Lexer) scanDiscretion() {
	l.advanceN(2)
	from := l.pos
	for l.pos < len(l.input) {
		ch := l.peek()
		if ch == '\n' {
			// Leave the newline for normal line handling.
			l.error("discretion marker must close before end of line",
				"use *** ... *** for a multi-line condition")
			l.emit(token.Discretion, l.input[from:l.pos])
			return
		}
		if l.hasPrefix("**") {
			raw := l.input[from:l.pos]
			l.advanceN(2)
			l.emit(token.Discretion, raw)
			return
		}
		l.advance()
	}
	l.error("unterminated discretion marker", "add a closing **")
	l.emit(token.Discretion, l.input[from:l.pos])
}

func (l *Lexer) scanMultilineDiscretion() {
	l.advanceN(3)
	from := l.pos
	for l.pos < len(l.input) {
		if l.hasPrefix("***") {
			raw := l.input[from:l.pos]
			l.advanceN(3)
			l.emit(token.MultilineDiscretion, normalizeNewlines(raw))
			return
		}
		l.advance()
	}
	l.error("unterminated discretion marker", "add a closing ***")
	l.emit(token.MultilineDiscretion, normalizeNewlines(l.input[from:l.pos]))
}

func (l *Lexer) scanNumber() {
	from := l.pos
	for l.pos < len(l.input) && isDigit(l.peek()) {
		l.advance()
	}
	if l.pos < len(l.input) && l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.advance()
		for l.pos < len(l.input) && isDigit(l.peek()) {
			l.advance()
		}
	}
	l.emit(token.Number, l.input[from:l.pos])
}

func (l *Lexer) scanIdentOrKeyword() {
	from := l.pos
	l.advance()
	for l.pos < len(l.input) && isIdentPart(l.peek()) {
		l.advance()
	}
	literal := l.input[from:l.pos]
	l.emit(token.LookupKeyword(literal), literal)
}

// --- cursor helpers ---

func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

func (l *Lexer) peekAt(offset int) rune {
	p := l.pos + offset
	if p >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[p:])
	return r
}

func (l *Lexer) hasPrefix(s string) bool {
	return strings.HasPrefix(l.input[l.pos:], s)
}

func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *Lexer) advanceN(n int) {
	for i := 0; i < n; i++ {
		l.advance()
	}
}

func (l *Lexer) here() token.Location {
	return token.Location{Line: l.line, Column: l.col, Offset: l.pos}
}

func (l *Lexer) mark() {
	l.start = l.here()
}

func (l *Lexer) makeToken(kind token.Kind, value string) token.Token {
	return token.Token{
		Kind:  kind,
		Value: value,
		Span:  token.Span{Start: l.start, End: l.here()},
	}
}

func (l *Lexer) emit(kind token.Kind, value string) {
	l.tokens = append(l.tokens, l.makeToken(kind, value))
}

// emitAt emits a zero-width token at a location, used for the structural
// Indent/Dedent/Newline/EOF tokens that have no source text of their own.
func (l *Lexer) emitAt(kind token.Kind, value string, at token.Location) {
	l.tokens = append(l.tokens, token.Token{
		Kind:  kind,
		Value: value,
		Span:  token.Span{Start: at, End: at},
	})
}

func (l *Lexer) error(msg, hint string) {
	l.errors = append(l.errors, &Error{
		File:    l.file,
		Span:    token.Span{Start: l.start, End: l.here()},
		Message: msg,
		Hint:    hint,
	})
}

func (l *Lexer) errorAt(at token.Location, msg, hint string) {
	l.errors = append(l.errors, &Error{
		File:    l.file,
		Span:    token.Span{Start: at, End: at},
		Message: msg,
		Hint:    hint,
	})
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || r == '-'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}
