// Package validate implements semantic analysis for parsed prose
// programs: reference resolution, duplicate detection, arity and shape
// checks, and discretion-presence checks. Validation never mutates the
// AST and always reports every problem it finds.
package validate

import (
	"fmt"

	"github.com/irl-dan/open-prose-sub003/internal/ast"
	"github.com/irl-dan/open-prose-sub003/internal/token"
)

// ValidationError blocks compilation.
type ValidationError struct {
	File    string
	Span    token.Span
	Message string
	Hint    string
}

func (e *ValidationError) Error() string {
	s := fmt.Sprintf("%s:%d:%d: error: %s", e.File, e.Span.Start.Line, e.Span.Start.Column, e.Message)
	if e.Hint != "" {
		s += "\n  hint: " + e.Hint
	}
	return s
}

// ValidationWarning reports a likely mistake without blocking
// compilation.
type ValidationWarning struct {
	File    string
	Span    token.Span
	Message string
	Hint    string
}

func (w *ValidationWarning) String() string {
	s := fmt.Sprintf("%s:%d:%d: warning: %s", w.File, w.Span.Start.Line, w.Span.Start.Column, w.Message)
	if w.Hint != "" {
		s += "\n  hint: " + w.Hint
	}
	return s
}

// Result aggregates everything validation found.
type Result struct {
	Errors   []*ValidationError
	Warnings []*ValidationWarning
}

// OK reports whether the program may be compiled.
func (r Result) OK() bool { return len(r.Errors) == 0 }

// Stage is one independent validation pass. Stages run in order and
// each sees the whole program; the scope stage is deliberately one
// swappable entry so binding semantics can be tightened later without
// touching the parser.
type Stage interface {
	Name() string
	Check(prog *ast.Program, rep *Reporter)
}

// Reporter collects diagnostics for the running stages.
type Reporter struct {
	file     string
	errors   []*ValidationError
	warnings []*ValidationWarning
}

func (r *Reporter) Error(span token.Span, msg, hint string) {
	r.errors = append(r.errors, &ValidationError{
		File: r.file, Span: span, Message: msg, Hint: hint,
	})
}

func (r *Reporter) Warning(span token.Span, msg, hint string) {
	r.warnings = append(r.warnings, &ValidationWarning{
		File: r.file, Span: span, Message: msg, Hint: hint,
	})
}

// DefaultStages returns the standard validation pipeline.
func DefaultStages() []Stage {
	return []Stage{
		&ScopeStage{},
		&ParallelStage{},
		&DiscretionStage{},
		&ContextStage{},
	}
}

// Validate runs the default stages over a program.
func Validate(prog *ast.Program) Result {
	return ValidateWith(prog, DefaultStages())
}

// ValidateWith runs an explicit stage pipeline. The function is pure:
// the program is never modified and repeated calls return equal results.
func ValidateWith(prog *ast.Program, stages []Stage) Result {
	rep := &Reporter{file: prog.Path}
	for _, stage := range stages {
		stage.Check(prog, rep)
	}
	return Result{Errors: rep.errors, Warnings: rep.warnings}
}
