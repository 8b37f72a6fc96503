package http

import (
	"context"
	"log/slog"

	"github.com/example/wellness-reminders/internal/logging"
)

type contextKey string

const (
	userIDContextKey     contextKey = "user_id"
	reminderIDContextKey contextKey = "reminder_id"
	templateIDContextKey contextKey = "template_id"
)

// ContextWithUserID injects the user identifier resolved from the request path.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext extracts a user identifier previously associated with the context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDContextKey).(string)
	return id, ok
}

// ContextWithReminderID injects the reminder identifier resolved from the request path.
func ContextWithReminderID(ctx context.Context, reminderID string) context.Context {
	return context.WithValue(ctx, reminderIDContextKey, reminderID)
}

// ReminderIDFromContext extracts a reminder identifier previously associated with the context.
func ReminderIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(reminderIDContextKey).(string)
	return id, ok
}

// ContextWithTemplateID injects the template identifier resolved from the request path.
func ContextWithTemplateID(ctx context.Context, templateID string) context.Context {
	return context.WithValue(ctx, templateIDContextKey, templateID)
}

// TemplateIDFromContext extracts a template identifier previously associated with the context.
func TemplateIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(templateIDContextKey).(string)
	return id, ok
}

// ContextWithLogger attaches a request-scoped logger to the context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts a logger previously attached to the context.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
