package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/irl-dan/open-prose-sub003/internal/highlight"
)

func newHighlightCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "highlight <file.prose>",
		Short: "Emit syntax-highlighting spans as JSON",
		Long: `Highlight tokenizes a .prose file and prints an ordered list of
(span, category, modifiers) records for editor and tooling clients.
Lexically broken files still produce spans for everything that lexed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("cannot read %s: %w", args[0], err)
			}

			spans := highlight.Scan(string(input), args[0])
			data, err := json.MarshalIndent(spans, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}
