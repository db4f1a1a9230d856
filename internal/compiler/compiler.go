// Package compiler turns a validated prose program into deterministic
// canonical output for an external executor: sugar expanded, comments
// stripped and accounted for, every output line mapped back to source,
// and skill-loading encoded per compilation target.
package compiler

import (
	"fmt"
	"strings"

	"github.com/irl-dan/open-prose-sub003/internal/ast"
	"github.com/irl-dan/open-prose-sub003/internal/compiler/targets"
	"github.com/irl-dan/open-prose-sub003/internal/token"
)

// Options configures a compilation.
type Options struct {
	// Target selects a compilation target explicitly. When empty the
	// target is auto-detected from DetectDir, falling back to
	// DefaultTarget with a warning.
	Target string

	// DetectDir is scanned for .claude / .opencode marker directories.
	// Empty disables auto-detection.
	DetectDir string

	// DefaultTarget applies when nothing else resolves a target.
	// Empty means "claude-code".
	DefaultTarget string

	// PreserveComments keeps comments in canonical output instead of
	// stripping them.
	PreserveComments bool
}

// StrippedComment records one comment removed from canonical output.
type StrippedComment struct {
	Text string     `json:"text"`
	Span token.Span `json:"span"`
}

// Artifact is the result of a successful compilation.
type Artifact struct {
	Code             string
	SourceMap        *SourceMap
	StrippedComments []StrippedComment
	Warnings         []string
	Target           string
}

// Compile compiles a program that has already passed validation with
// zero errors. That precondition is the caller's contract; compiling a
// program with unresolved references produces undefined canonical
// output rather than an error here.
func Compile(prog *ast.Program, opts Options) (*Artifact, error) {
	name, warning, err := resolveTarget(opts)
	if err != nil {
		return nil, err
	}
	tgt, ok := targets.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown compilation target %q (available: %s)",
			name, strings.Join(targets.List(), ", "))
	}

	desugared := Desugar(prog)
	code, sm := emit(desugared, tgt, opts.PreserveComments)

	artifact := &Artifact{
		Code:      code,
		SourceMap: sm,
		Target:    name,
	}
	if warning != "" {
		artifact.Warnings = append(artifact.Warnings, warning)
	}
	if !opts.PreserveComments {
		for _, c := range prog.Comments {
			artifact.StrippedComments = append(artifact.StrippedComments, StrippedComment{
				Text: c.Text,
				Span: c.SourceSpan,
			})
		}
	}
	return artifact, nil
}

// resolveTarget applies the resolution order: explicit option, marker
// detection, configured default. The warning is non-empty only when the
// default was applied silently.
func resolveTarget(opts Options) (name, warning string, err error) {
	if opts.Target != "" {
		return opts.Target, "", nil
	}
	if opts.DetectDir != "" {
		detected, derr := DetectTarget(opts.DetectDir)
		if derr != nil {
			return "", "", derr
		}
		if detected != "" {
			return detected, "", nil
		}
	}
	def := opts.DefaultTarget
	if def == "" {
		def = "claude-code"
	}
	warning = fmt.Sprintf("no target specified and no marker directory found; defaulting to %q", def)
	return def, warning, nil
}
