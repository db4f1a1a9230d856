package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/irl-dan/open-prose-sub003/internal/compiler"
	"github.com/irl-dan/open-prose-sub003/internal/config"
	"github.com/irl-dan/open-prose-sub003/internal/parser"
	"github.com/irl-dan/open-prose-sub003/internal/validate"
)

func newCompileCmd() *cobra.Command {
	var (
		target           string
		output           string
		sourceMapPath    string
		preserveComments bool
	)

	cmd := &cobra.Command{
		Use:   "compile <file.prose>",
		Short: "Compile a prose definition into canonical target form",
		Long: `Compile parses, validates, and compiles a .prose file. A program
with any validation error does not compile; every error is reported.

The target is resolved in order: --target, a .claude or .opencode
marker directory next to the file, then the project default.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]
			input, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("cannot read %s: %w", file, err)
			}
			dir := filepath.Dir(file)

			prog, parseErrs := parser.Parse(string(input), file)
			if len(parseErrs) > 0 {
				for _, e := range parseErrs {
					fmt.Fprintln(os.Stderr, e.Error())
				}
				os.Exit(1)
			}

			res := validate.Validate(prog)
			for _, w := range res.Warnings {
				fmt.Fprintln(os.Stderr, w.String())
			}
			if !res.OK() {
				for _, e := range res.Errors {
					fmt.Fprintln(os.Stderr, e.Error())
				}
				os.Exit(1)
			}

			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}

			opts := compiler.Options{
				Target:           target,
				DetectDir:        dir,
				DefaultTarget:    cfg.DefaultTarget,
				PreserveComments: preserveComments || cfg.PreserveComments,
			}

			artifact, err := compiler.Compile(prog, opts)
			if err != nil {
				return err
			}

			for _, w := range artifact.Warnings {
				fmt.Fprintf(os.Stderr, "warning: %s\n", w)
			}
			fmt.Fprintf(os.Stderr, "stripped %d comment(s)\n", len(artifact.StrippedComments))
			if verbose {
				fmt.Fprintf(os.Stderr, "compiled %s for target %s\n", file, artifact.Target)
			}

			if sourceMapPath != "" {
				data, err := json.MarshalIndent(artifact.SourceMap, "", "  ")
				if err != nil {
					return fmt.Errorf("marshaling source map: %w", err)
				}
				if err := os.WriteFile(sourceMapPath, data, 0644); err != nil {
					return fmt.Errorf("writing source map: %w", err)
				}
			}

			if output != "" {
				return os.WriteFile(output, []byte(artifact.Code), 0644)
			}
			fmt.Print(artifact.Code)
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Compilation target (claude-code|opencode)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write canonical output to a file instead of stdout")
	cmd.Flags().StringVar(&sourceMapPath, "source-map", "", "Write the source map as JSON to a file")
	cmd.Flags().BoolVar(&preserveComments, "preserve-comments", false, "Keep comments in canonical output")

	return cmd
}
