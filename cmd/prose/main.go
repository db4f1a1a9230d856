// Package main is the entry point for the prose CLI tool.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version     = "0.1.0"
	langVersion = "1.0"
)

// Global flags.
var (
	verbose       bool
	correlationID string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "prose",
		Short: "Front-end toolkit for prose workflow definitions",
		Long: `Prose parses declarative AI-workflow definitions (.prose files),
validates references and structure, and compiles them into canonical
form for the claude-code and opencode targets.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose output")
	root.PersistentFlags().StringVar(&correlationID, "correlation-id", "", "Set explicit correlation ID")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newCompileCmd())
	root.AddCommand(newHighlightCmd())
	root.AddCommand(newWatchCmd())

	return root
}

// resolveProseFiles expands file and directory arguments into the set
// of .prose files to work on. No arguments means the current directory.
func resolveProseFiles(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}

	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if info.IsDir() {
			matches, err := filepath.Glob(filepath.Join(arg, "*.prose"))
			if err != nil {
				return nil, err
			}
			files = append(files, matches...)
		} else {
			files = append(files, arg)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no .prose files found")
	}
	return files, nil
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
