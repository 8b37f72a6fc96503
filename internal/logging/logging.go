// Package logging threads a request-scoped slog.Logger through contexts.
package logging

import (
	"context"
	"log/slog"
)

// loggerKey is unexported so only this package can read or write the value.
type loggerKey struct{}

// ContextWithLogger derives a context carrying logger. Nil inputs leave the
// context untouched.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored by ContextWithLogger, or nil when the
// context carries none.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey{}).(*slog.Logger)
	return logger
}
