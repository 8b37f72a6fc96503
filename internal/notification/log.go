package notification

import (
	"context"
	"log/slog"
)

// LogBrowserNotifier is the in-process stand-in for the platform
// notification surface. Permission is always granted and posted messages are
// written to the log; real deployments swap in a transport-backed notifier.
type LogBrowserNotifier struct {
	logger *slog.Logger
}

// NewLogBrowserNotifier constructs a log-backed browser notifier.
func NewLogBrowserNotifier(logger *slog.Logger) *LogBrowserNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogBrowserNotifier{logger: logger}
}

// RequestPermission always grants.
func (n *LogBrowserNotifier) RequestPermission(context.Context) (bool, error) {
	return true, nil
}

// Post writes the notification to the log.
func (n *LogBrowserNotifier) Post(ctx context.Context, message string) error {
	n.logger.InfoContext(ctx, "reminder notification", "channel", "browser", "message", message)
	return nil
}

// LogEmailSender is the in-process stand-in for the email delivery
// collaborator.
type LogEmailSender struct {
	logger *slog.Logger
}

// NewLogEmailSender constructs a log-backed email sender.
func NewLogEmailSender(logger *slog.Logger) *LogEmailSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmailSender{logger: logger}
}

// Send writes the handoff to the log.
func (s *LogEmailSender) Send(ctx context.Context, message string) error {
	s.logger.InfoContext(ctx, "reminder notification", "channel", "email", "message", message)
	return nil
}
