// Package token defines the lexical token kinds and source position
// model for the prose language (.prose files).
package token

import "fmt"

// Kind represents the kind of a lexical token.
type Kind int

const (
	// Structural tokens
	EOF Kind = iota
	Newline
	Indent
	Dedent

	// Literals
	Ident
	String
	TripleString
	Number
	Discretion
	MultilineDiscretion

	// Trivia
	Comment

	// Punctuation
	Colon    // :
	Comma    // ,
	LParen   // (
	RParen   // )
	LBracket // [
	RBracket // ]
	LBrace   // {
	RBrace   // }
	Pipe     // |
	Equals   // =
	Arrow    // ->

	// Keywords
	KwImport
	KwAgent
	KwSession
	KwBlock
	KwDo
	KwParallel
	KwChoice
	KwLet
	KwConst
	KwLoop
	KwRepeat
	KwFor
	KwIn
	KwIf
	KwElif
	KwElse
	KwTry
	KwCatch
	KwFinally
	KwThrow
	KwRetry
	KwBackoff
	KwMap
	KwFilter
	KwReduce
	KwPmap
)

var kindNames = map[Kind]string{
	EOF:                 "EOF",
	Newline:             "Newline",
	Indent:              "Indent",
	Dedent:              "Dedent",
	Ident:               "Ident",
	String:              "String",
	TripleString:        "TripleString",
	Number:              "Number",
	Discretion:          "Discretion",
	MultilineDiscretion: "MultilineDiscretion",
	Comment:             "Comment",
	Colon:               ":",
	Comma:               ",",
	LParen:              "(",
	RParen:              ")",
	LBracket:            "[",
	RBracket:            "]",
	LBrace:              "{",
	RBrace:              "}",
	Pipe:                "|",
	Equals:              "=",
	Arrow:               "->",
	KwImport:            "import",
	KwAgent:             "agent",
	KwSession:           "session",
	KwBlock:             "block",
	KwDo:                "do",
	KwParallel:          "parallel",
	KwChoice:            "choice",
	KwLet:               "let",
	KwConst:             "const",
	KwLoop:              "loop",
	KwRepeat:            "repeat",
	KwFor:               "for",
	KwIn:                "in",
	KwIf:                "if",
	KwElif:              "elif",
	KwElse:              "else",
	KwTry:               "try",
	KwCatch:             "catch",
	KwFinally:           "finally",
	KwThrow:             "throw",
	KwRetry:             "retry",
	KwBackoff:           "backoff",
	KwMap:               "map",
	KwFilter:            "filter",
	KwReduce:            "reduce",
	KwPmap:              "pmap",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var keywords = map[string]Kind{
	"import":   KwImport,
	"agent":    KwAgent,
	"session":  KwSession,
	"block":    KwBlock,
	"do":       KwDo,
	"parallel": KwParallel,
	"choice":   KwChoice,
	"let":      KwLet,
	"const":    KwConst,
	"loop":     KwLoop,
	"repeat":   KwRepeat,
	"for":      KwFor,
	"in":       KwIn,
	"if":       KwIf,
	"elif":     KwElif,
	"else":     KwElse,
	"try":      KwTry,
	"catch":    KwCatch,
	"finally":  KwFinally,
	"throw":    KwThrow,
	"retry":    KwRetry,
	"backoff":  KwBackoff,
	"map":      KwMap,
	"filter":   KwFilter,
	"reduce":   KwReduce,
	"pmap":     KwPmap,
}

// LookupKeyword returns the keyword kind for ident, or Ident.
func LookupKeyword(ident string) Kind {
	if k, ok := keywords[ident]; ok {
		return k
	}
	return Ident
}

// IsKeyword reports whether k is a reserved-word kind.
func IsKeyword(k Kind) bool {
	return k >= KwImport && k <= KwPmap
}

// Location is a position in source text. Line and Column are 1-based,
// Offset is the 0-based byte offset.
type Location struct {
	Line   int
	Column int
	Offset int
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Before reports whether l precedes o in source order.
func (l Location) Before(o Location) bool {
	return l.Offset < o.Offset
}

// Span is a half-open source range from Start to End, Start ≤ End.
type Span struct {
	Start Location
	End   Location
}

func (s Span) String() string {
	return fmt.Sprintf("%s-%s", s.Start, s.End)
}

// Contains reports whether s fully encloses inner.
func (s Span) Contains(inner Span) bool {
	return s.Start.Offset <= inner.Start.Offset && inner.End.Offset <= s.End.Offset
}

// Token is a single lexical token with its raw text and source span.
type Token struct {
	Kind   Kind
	Value  string
	Span   Span
	Trivia bool
}

func (t Token) String() string {
	if t.Value != "" {
		return fmt.Sprintf("%s(%q) at %s", t.Kind, t.Value, t.Span.Start)
	}
	return fmt.Sprintf("%s at %s", t.Kind, t.Span.Start)
}
