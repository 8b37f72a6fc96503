package http

import (
	"context"
	"log/slog"
)

// defaultLogger substitutes the process-wide logger when none was injected.
func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// handlerLogger resolves the request-scoped logger, preferring one carried by
// the context over the handler's fallback, and tags it with the handler name
// and operation.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
	}

	tags := []any{"handler", handlerName}
	if operation != "" {
		tags = append(tags, "operation", operation)
	}
	tags = append(tags, attrs...)
	return logger.With(tags...)
}
