package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/irl-dan/open-prose-sub003/internal/parser"
	"github.com/irl-dan/open-prose-sub003/internal/validate"
)

// diagnostic is the format-independent shape of one reported problem.
type diagnostic struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Hint     string `json:"hint,omitempty"`
}

func newValidateCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "validate [files...]",
		Short: "Validate prose definitions (syntax + semantics)",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := resolveProseFiles(args)
			if err != nil {
				return err
			}

			var (
				mu  sync.Mutex
				all []diagnostic
			)

			var g errgroup.Group
			for _, file := range files {
				file := file
				g.Go(func() error {
					diags, err := validateFile(file)
					if err != nil {
						return err
					}
					mu.Lock()
					all = append(all, diags...)
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			// Deterministic report order regardless of goroutine timing.
			sort.Slice(all, func(i, j int) bool {
				if all[i].File != all[j].File {
					return all[i].File < all[j].File
				}
				if all[i].Line != all[j].Line {
					return all[i].Line < all[j].Line
				}
				return all[i].Column < all[j].Column
			})

			hasErrors := false
			for _, d := range all {
				if d.Severity == "error" {
					hasErrors = true
					break
				}
			}

			if len(all) > 0 {
				reportDiagnostics(all, format)
			}
			if hasErrors {
				os.Exit(1)
			}

			fmt.Println("Valid program")
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format (text|json)")

	return cmd
}

// validateFile runs the full front-end pipeline over one file and
// returns its diagnostics. Only I/O problems surface as errors.
func validateFile(file string) ([]diagnostic, error) {
	input, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", file, err)
	}

	var diags []diagnostic

	prog, parseErrs := parser.Parse(string(input), file)
	for _, e := range parseErrs {
		diags = append(diags, diagnostic{
			File:     e.File,
			Line:     e.Span.Start.Line,
			Column:   e.Span.Start.Column,
			Severity: "error",
			Message:  e.Message,
			Hint:     e.Hint,
		})
	}
	if len(parseErrs) > 0 {
		return diags, nil
	}

	res := validate.Validate(prog)
	for _, e := range res.Errors {
		diags = append(diags, diagnostic{
			File:     e.File,
			Line:     e.Span.Start.Line,
			Column:   e.Span.Start.Column,
			Severity: "error",
			Message:  e.Message,
			Hint:     e.Hint,
		})
	}
	for _, w := range res.Warnings {
		diags = append(diags, diagnostic{
			File:     w.File,
			Line:     w.Span.Start.Line,
			Column:   w.Span.Start.Column,
			Severity: "warning",
			Message:  w.Message,
			Hint:     w.Hint,
		})
	}
	return diags, nil
}

func reportDiagnostics(diags []diagnostic, format string) {
	switch format {
	case "json":
		data, _ := json.MarshalIndent(diags, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	default:
		for _, d := range diags {
			fmt.Fprintf(os.Stderr, "%s:%d:%d: %s: %s\n", d.File, d.Line, d.Column, d.Severity, d.Message)
			if d.Hint != "" {
				fmt.Fprintf(os.Stderr, "  hint: %s\n", d.Hint)
			}
		}
	}
}
