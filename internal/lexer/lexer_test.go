package lexer

import (
	"strings"
	"testing"

	"github.com/irl-dan/open-prose-sub003/internal/token"
)

func kinds(res Result) []token.Kind {
	out := make([]token.Kind, 0, len(res.Tokens))
	for _, tok := range res.Tokens {
		out = append(out, tok.Kind)
	}
	return out
}

func countKind(res Result, kind token.Kind) int {
	n := 0
	for _, tok := range res.Tokens {
		if tok.Kind == kind {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Stream shape
// ---------------------------------------------------------------------------

func TestTokenize_AlwaysEndsInOneEOF(t *testing.T) {
	inputs := []string{
		"",
		"\n\n\n",
		`session "hi"`,
		"do:\n    session \"a\"\n",
		"@@@ %% !!",
		"\"unterminated",
		"**unclosed",
		"do:\n  a\n      b\n c\n",
	}

	for _, src := range inputs {
		res := Tokenize(src, "test.prose", DefaultOptions())
		if n := countKind(res, token.EOF); n != 1 {
			t.Errorf("input %q: got %d EOF tokens, want 1", src, n)
		}
		if res.Tokens[len(res.Tokens)-1].Kind != token.EOF {
			t.Errorf("input %q: stream does not end in EOF", src)
		}
		if in, de := countKind(res, token.Indent), countKind(res, token.Dedent); in != de {
			t.Errorf("input %q: %d INDENT vs %d DEDENT", src, in, de)
		}
	}
}

func TestTokenize_ErrorSpansWithinSource(t *testing.T) {
	src := "do:\n  @bad\n      worse \"unfinished\n"
	res := Tokenize(src, "test.prose", DefaultOptions())
	if len(res.Errors) == 0 {
		t.Fatal("expected lexical errors")
	}
	for _, e := range res.Errors {
		if e.Span.Start.Offset < 0 || e.Span.End.Offset > len(src) {
			t.Errorf("error span %+v outside source bounds", e.Span)
		}
	}
}

// ---------------------------------------------------------------------------
// Indentation
// ---------------------------------------------------------------------------

func TestTokenize_NestedIndentation(t *testing.T) {
	src := "block outer:\n    do:\n      session \"x\"\n    session \"y\"\n"
	res := Tokenize(src, "test.prose", DefaultOptions())

	if len(res.Errors) != 0 {
		for _, e := range res.Errors {
			t.Logf("  %s", e.Error())
		}
		t.Fatalf("unexpected errors: %d", len(res.Errors))
	}
	if in := countKind(res, token.Indent); in != 2 {
		t.Errorf("got %d INDENT, want 2", in)
	}
	if de := countKind(res, token.Dedent); de != 2 {
		t.Errorf("got %d DEDENT, want 2", de)
	}
}

func TestTokenize_DeeperLineEmitsSingleIndent(t *testing.T) {
	// A body indented by 2 under a header at 4 is one level deeper, not
	// half a level: exactly one INDENT, later one matching DEDENT.
	src := "do:\n    do:\n      session \"x\"\n    session \"y\"\n"
	res := Tokenize(src, "test.prose", DefaultOptions())
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors[0])
	}

	seq := kinds(res)
	indents := 0
	for i, k := range seq {
		if k == token.Indent {
			indents++
		}
		// session "y" must be preceded by exactly one DEDENT back to
		// the 4-column level.
		if k == token.KwSession && i > 0 && res.Tokens[i+1].Value == "y" {
			if seq[i-1] != token.Dedent {
				t.Error("expected a DEDENT before the 4-column session")
			}
			if i >= 2 && seq[i-2] == token.Dedent {
				t.Error("expected exactly one DEDENT, got two")
			}
		}
	}
	if indents != 2 {
		t.Errorf("got %d INDENT, want 2", indents)
	}
}

func TestTokenize_InconsistentIndentation(t *testing.T) {
	src := "do:\n    session \"a\"\n  session \"b\"\n"
	res := Tokenize(src, "test.prose", DefaultOptions())

	found := false
	for _, e := range res.Errors {
		if strings.Contains(e.Message, "inconsistent indentation") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected inconsistent indentation error")
	}
	// Recovery pops to the enclosing level, keeping the stream balanced.
	if in, de := countKind(res, token.Indent), countKind(res, token.Dedent); in != de {
		t.Errorf("%d INDENT vs %d DEDENT after recovery", in, de)
	}
}

func TestTokenize_TabsNormalizeToFourColumns(t *testing.T) {
	spaces := Tokenize("do:\n    session \"a\"\n    session \"b\"\n", "t", DefaultOptions())
	tabs := Tokenize("do:\n\tsession \"a\"\n\tsession \"b\"\n", "t", DefaultOptions())

	if len(spaces.Errors) != 0 || len(tabs.Errors) != 0 {
		t.Fatal("unexpected errors")
	}
	sk, tk := kinds(spaces), kinds(tabs)
	if len(sk) != len(tk) {
		t.Fatalf("token counts differ: %d vs %d", len(sk), len(tk))
	}
	for i := range sk {
		if sk[i] != tk[i] {
			t.Errorf("token %d differs: %s vs %s", i, sk[i], tk[i])
		}
	}
}

func TestTokenize_BlankAndCommentLinesSkipIndentation(t *testing.T) {
	src := "do:\n    session \"a\"\n\n# outdented comment\n    session \"b\"\n"
	res := Tokenize(src, "test.prose", DefaultOptions())
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors[0])
	}
	// The comment line at column 0 must not dedent the block.
	if de := countKind(res, token.Dedent); de != 1 {
		t.Errorf("got %d DEDENT, want 1", de)
	}
}

// ---------------------------------------------------------------------------
// Strings
// ---------------------------------------------------------------------------

func TestTokenize_StringEscapes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"newline", `"a\nb"`, "a\nb"},
		{"tab", `"a\tb"`, "a\tb"},
		{"carriage return", `"a\rb"`, "a\rb"},
		{"backslash", `"a\\b"`, `a\b`},
		{"quote", `"a\"b"`, `a"b`},
		{"hash", `"a\#b"`, "a#b"},
		{"unknown escape passes through", `"a\qb"`, "aqb"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Tokenize(tc.src, "test.prose", DefaultOptions())
			if len(res.Errors) != 0 {
				t.Fatalf("unexpected errors: %v", res.Errors[0])
			}
			if res.Tokens[0].Kind != token.String {
				t.Fatalf("got %s, want String", res.Tokens[0].Kind)
			}
			if res.Tokens[0].Value != tc.want {
				t.Errorf("got %q, want %q", res.Tokens[0].Value, tc.want)
			}
		})
	}
}

func TestTokenize_UnterminatedStringRecovers(t *testing.T) {
	src := "session \"oops\nsession \"fine\"\n"
	res := Tokenize(src, "test.prose", DefaultOptions())

	unterminated := 0
	for _, e := range res.Errors {
		if strings.Contains(e.Message, "unterminated string") {
			unterminated++
		}
	}
	if unterminated != 1 {
		t.Fatalf("got %d unterminated string errors, want 1", unterminated)
	}

	// The second line still tokenizes: two session keywords, two strings.
	if n := countKind(res, token.KwSession); n != 2 {
		t.Errorf("got %d session keywords, want 2", n)
	}
	if n := countKind(res, token.String); n != 2 {
		t.Errorf("got %d strings, want 2", n)
	}
}

func TestTokenize_TripleString(t *testing.T) {
	src := "\"\"\"line one\r\nline \\n two\"\"\""
	res := Tokenize(src, "test.prose", DefaultOptions())
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors[0])
	}
	tok := res.Tokens[0]
	if tok.Kind != token.TripleString {
		t.Fatalf("got %s, want TripleString", tok.Kind)
	}
	// Verbatim content: \r\n normalized, escapes untouched.
	if tok.Value != "line one\nline \\n two" {
		t.Errorf("got %q", tok.Value)
	}
}

// ---------------------------------------------------------------------------
// Discretion markers
// ---------------------------------------------------------------------------

func TestTokenize_DiscretionMarkers(t *testing.T) {
	res := Tokenize("**the tests pass** ***it\nlooks done***", "test.prose", DefaultOptions())
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors[0])
	}
	if res.Tokens[0].Kind != token.Discretion || res.Tokens[0].Value != "the tests pass" {
		t.Errorf("inline marker: got %s %q", res.Tokens[0].Kind, res.Tokens[0].Value)
	}
	if res.Tokens[1].Kind != token.MultilineDiscretion || res.Tokens[1].Value != "it\nlooks done" {
		t.Errorf("multi-line marker: got %s %q", res.Tokens[1].Kind, res.Tokens[1].Value)
	}
}

func TestTokenize_InlineDiscretionCannotSpanLines(t *testing.T) {
	res := Tokenize("**not done\nyet**", "test.prose", DefaultOptions())

	found := false
	for _, e := range res.Errors {
		if strings.Contains(e.Message, "must close before end of line") {
			found = true
			if !strings.Contains(e.Hint, "***") {
				t.Errorf("hint should point at the triple form, got %q", e.Hint)
			}
		}
	}
	if !found {
		t.Fatal("expected line-spanning inline marker error")
	}
}

// ---------------------------------------------------------------------------
// Identifiers, keywords, punctuation
// ---------------------------------------------------------------------------

func TestTokenize_KeywordsAndIdentifiers(t *testing.T) {
	res := Tokenize("session my-agent until _tmp2 repeat", "test.prose", DefaultOptions())
	want := []struct {
		kind  token.Kind
		value string
	}{
		{token.KwSession, "session"},
		{token.Ident, "my-agent"},
		{token.Ident, "until"}, // soft keyword, reserved only after 'loop'
		{token.Ident, "_tmp2"},
		{token.KwRepeat, "repeat"},
	}
	for i, w := range want {
		if res.Tokens[i].Kind != w.kind || res.Tokens[i].Value != w.value {
			t.Errorf("token %d: got %s %q, want %s %q",
				i, res.Tokens[i].Kind, res.Tokens[i].Value, w.kind, w.value)
		}
	}
}

func TestTokenize_ArrowVersusDashIdentifier(t *testing.T) {
	res := Tokenize(`"a" -> -dash-name`, "test.prose", DefaultOptions())
	if res.Tokens[1].Kind != token.Arrow {
		t.Errorf("got %s, want Arrow", res.Tokens[1].Kind)
	}
	if res.Tokens[2].Kind != token.Ident || res.Tokens[2].Value != "-dash-name" {
		t.Errorf("got %s %q, want Ident -dash-name", res.Tokens[2].Kind, res.Tokens[2].Value)
	}
}

func TestTokenize_Numbers(t *testing.T) {
	res := Tokenize("3 14.5", "test.prose", DefaultOptions())
	if res.Tokens[0].Kind != token.Number || res.Tokens[0].Value != "3" {
		t.Errorf("got %s %q", res.Tokens[0].Kind, res.Tokens[0].Value)
	}
	if res.Tokens[1].Kind != token.Number || res.Tokens[1].Value != "14.5" {
		t.Errorf("got %s %q", res.Tokens[1].Kind, res.Tokens[1].Value)
	}
}

func TestTokenize_UnexpectedCharacterSkipsOne(t *testing.T) {
	res := Tokenize("@session", "test.prose", DefaultOptions())
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0].Message, "unexpected character") {
		t.Fatalf("expected one unexpected-character error, got %v", res.Errors)
	}
	if res.Tokens[0].Kind != token.KwSession {
		t.Errorf("scanning should resume after the bad character, got %s", res.Tokens[0].Kind)
	}
}

// ---------------------------------------------------------------------------
// Comments
// ---------------------------------------------------------------------------

func TestTokenize_Comments(t *testing.T) {
	src := "# standalone\nsession \"hi\" # trailing\n"
	res := Tokenize(src, "test.prose", DefaultOptions())
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors[0])
	}

	if n := countKind(res, token.Comment); n != 2 {
		t.Fatalf("got %d comments, want 2", n)
	}
	if res.Tokens[0].Kind != token.Comment || res.Tokens[0].Value != "# standalone" {
		t.Errorf("got %s %q", res.Tokens[0].Kind, res.Tokens[0].Value)
	}
	if !res.Tokens[0].Trivia {
		t.Error("comments must be marked as trivia")
	}
	// A comment-only line carries no NEWLINE of its own.
	if res.Tokens[1].Kind == token.Newline {
		t.Error("comment-only line must not emit NEWLINE")
	}

	stripped := Tokenize(src, "test.prose", Options{})
	if n := countKind(stripped, token.Comment); n != 0 {
		t.Errorf("got %d comments with comments disabled, want 0", n)
	}
}

func TestTokenize_HashInsideStringIsNotComment(t *testing.T) {
	res := Tokenize(`"issue #42"`, "test.prose", DefaultOptions())
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors[0])
	}
	if res.Tokens[0].Kind != token.String || res.Tokens[0].Value != "issue #42" {
		t.Errorf("got %s %q", res.Tokens[0].Kind, res.Tokens[0].Value)
	}
	if countKind(res, token.Comment) != 0 {
		t.Error("hash inside a string must not start a comment")
	}
}
