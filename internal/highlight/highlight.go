// Package highlight derives a syntax-highlighting view from the token
// stream: an ordered, non-overlapping sequence of (span, category,
// modifiers) triples. The view is read-only and never affects
// compilation.
package highlight

import (
	"github.com/irl-dan/open-prose-sub003/internal/lexer"
	"github.com/irl-dan/open-prose-sub003/internal/token"
)

// Token categories.
const (
	CategoryKeyword     = "keyword"
	CategoryString      = "string"
	CategoryNumber      = "number"
	CategoryIdentifier  = "identifier"
	CategoryDiscretion  = "discretion"
	CategoryComment     = "comment"
	CategoryOperator    = "operator"
	CategoryPunctuation = "punctuation"
)

// Modifiers refine a category.
const (
	ModifierTriple    = "triple"
	ModifierMultiline = "multiline"
	ModifierChain     = "chain"
)

// Span is one highlighted region. Regions are emitted in source order
// and never overlap.
type Span struct {
	Span      token.Span `json:"span"`
	Category  string     `json:"category"`
	Modifiers []string   `json:"modifiers,omitempty"`
}

// Scan tokenizes source and returns its highlighting view. Lexical
// errors degrade the stream but never fail the scan; the client still
// gets a view for everything that lexed.
func Scan(source, file string) []Span {
	res := lexer.Tokenize(source, file, lexer.DefaultOptions())

	var spans []Span
	for _, tok := range res.Tokens {
		category, mods := classify(tok)
		if category == "" {
			continue
		}
		spans = append(spans, Span{
			Span:      tok.Span,
			Category:  category,
			Modifiers: mods,
		})
	}
	return spans
}

// classify maps a token to its highlight category. Structural tokens
// (NEWLINE, INDENT, DEDENT, EOF) carry no visible text and are skipped.
func classify(tok token.Token) (string, []string) {
	switch tok.Kind {
	case token.EOF, token.Newline, token.Indent, token.Dedent:
		return "", nil
	case token.Comment:
		return CategoryComment, nil
	case token.String:
		return CategoryString, nil
	case token.TripleString:
		return CategoryString, []string{ModifierTriple}
	case token.Number:
		return CategoryNumber, nil
	case token.Ident:
		return CategoryIdentifier, nil
	case token.Discretion:
		return CategoryDiscretion, nil
	case token.MultilineDiscretion:
		return CategoryDiscretion, []string{ModifierMultiline}
	case token.Arrow:
		return CategoryOperator, []string{ModifierChain}
	case token.Pipe, token.Equals:
		return CategoryOperator, nil
	case token.Colon, token.Comma, token.LParen, token.RParen,
		token.LBracket, token.RBracket, token.LBrace, token.RBrace:
		return CategoryPunctuation, nil
	default:
		if token.IsKeyword(tok.Kind) {
			return CategoryKeyword, nil
		}
		return "", nil
	}
}
