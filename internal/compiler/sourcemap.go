package compiler

import (
	"sort"

	"github.com/irl-dan/open-prose-sub003/internal/token"
)

// Entry maps one line of canonical output back to the input span it was
// generated from.
type Entry struct {
	Line int        `json:"line"` // 1-based output line
	Span token.Span `json:"span"`
}

// SourceMap records, for every line of canonical output, the
// originating span in the .prose source. Entries are ordered by output
// line.
type SourceMap struct {
	Entries []Entry `json:"entries"`
}

func (m *SourceMap) add(line int, span token.Span) {
	m.Entries = append(m.Entries, Entry{Line: line, Span: span})
}

// SpanFor returns the input span for an output line.
func (m *SourceMap) SpanFor(line int) (token.Span, bool) {
	i := sort.Search(len(m.Entries), func(i int) bool {
		return m.Entries[i].Line >= line
	})
	if i < len(m.Entries) && m.Entries[i].Line == line {
		return m.Entries[i].Span, true
	}
	return token.Span{}, false
}
