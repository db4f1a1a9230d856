package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/irl-dan/open-prose-sub003/internal/telemetry"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [files...]",
		Short: "Revalidate prose definitions on change",
		Long:  "Watches .prose files and re-runs validation whenever one changes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := resolveProseFiles(args)
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := telemetry.NewLogger(os.Stderr, level)
			ctx := telemetry.WithCorrelationID(context.Background(), correlationID)
			ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return runWatchLoop(ctx, files, logger)
		},
	}
}

func runWatchLoop(ctx context.Context, files []string, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	// Watch parent directories: editors replace files on save, which
	// drops per-file watches.
	watched := map[string]bool{}
	dirs := map[string]bool{}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	revalidate := func(file string) {
		log := telemetry.FileLogger(logger, ctx, file)
		diags, err := validateFile(file)
		if err != nil {
			log.Error("revalidation failed", "error", err)
			return
		}
		errors, warnings := 0, 0
		for _, d := range diags {
			if d.Severity == "error" {
				errors++
			} else {
				warnings++
			}
			log.Warn("diagnostic",
				"line", d.Line, "column", d.Column,
				"severity", d.Severity, "message", d.Message)
		}
		if errors == 0 {
			log.Info("valid program", "warnings", warnings)
		} else {
			log.Info("invalid program", "errors", errors, "warnings", warnings)
		}
	}

	logger.Info("watching for changes", "files", files)
	for _, f := range files {
		revalidate(f)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !watched[abs] {
				continue
			}
			logger.Debug("change detected", "file", event.Name)
			revalidate(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch error", "error", err)
		}
	}
}
