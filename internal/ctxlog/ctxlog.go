// Package ctxlog carries the CLI's slog.Logger through context.Context.
package ctxlog

import (
	"context"
	"log/slog"
)

// ctxKey keeps the logger key private to this package.
type ctxKey struct{}

// WithLogger returns a copy of ctx that carries logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored by WithLogger.
// It panics when ctx carries none: every entry point installs one.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	panic("ctxlog: no logger in context")
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
