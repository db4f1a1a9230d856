// Package telemetry provides structured logging for the prose tooling
// commands. Nothing here is collected or transmitted; it writes to the
// stream the caller hands it.
package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/oklog/ulid/v2"
)

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// NewLogger creates a structured JSON logger.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

// WithCorrelationID adds a correlation ID to the context. If id is
// empty, a fresh ULID is minted.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = ulid.Make().String()
	}
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID retrieves the correlation ID from context.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// FileLogger returns a logger with file-scoped fields attached.
func FileLogger(logger *slog.Logger, ctx context.Context, file string) *slog.Logger {
	attrs := []any{
		slog.String("file", file),
	}
	if id := CorrelationID(ctx); id != "" {
		attrs = append(attrs, slog.String("correlation_id", id))
	}
	return logger.With(attrs...)
}
