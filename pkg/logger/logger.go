// Package logger configures the process-wide slog default and carries
// request ids through contexts so every log line of a request can be
// correlated.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

type contextKey struct{}

// Setup installs the default slog handler. Format "json" selects JSON
// output, anything else the text handler.
func Setup(level, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	handler := slog.Handler(slog.NewTextHandler(os.Stdout, opts))
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithRequestID stores a request id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKey{}, requestID)
}

// RequestIDFromContext returns the request id stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// FromContext returns the default logger, annotated with the request id
// from ctx when one is present.
func FromContext(ctx context.Context) *slog.Logger {
	log := slog.Default()
	if id := RequestIDFromContext(ctx); id != "" {
		log = log.With("request_id", id)
	}
	return log
}

// WithComponent tags the default logger with a component name.
func WithComponent(name string) *slog.Logger {
	return slog.Default().With("component", name)
}

// parseLevel understands debug, info, warn/warning, and error, defaulting
// to info for anything unrecognized.
func parseLevel(s string) slog.Level {
	if strings.EqualFold(s, "warning") {
		s = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
