package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Method selects the delivery channel for a dispatched reminder.
type Method string

const (
	// MethodBrowser posts a local platform notification.
	MethodBrowser Method = "browser"
	// MethodEmail hands the message to the email delivery collaborator.
	MethodEmail Method = "email"
	// MethodBoth delivers on both channels.
	MethodBoth Method = "both"
)

// ErrUnknownMethod indicates a delivery method outside the supported set.
var ErrUnknownMethod = errors.New("notification: unknown method")

// ParseMethod maps a wire token onto a Method value.
func ParseMethod(value string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(value))) {
	case MethodBrowser:
		return MethodBrowser, nil
	case MethodEmail:
		return MethodEmail, nil
	case MethodBoth:
		return MethodBoth, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, value)
	}
}

// BrowserNotifier abstracts the platform notification surface. Permission is
// requested at most once per dispatcher; implementations only need to answer
// the question, not remember it.
type BrowserNotifier interface {
	RequestPermission(ctx context.Context) (bool, error)
	Post(ctx context.Context, message string) error
}

// EmailSender hands a reminder message to the external delivery transport.
type EmailSender interface {
	Send(ctx context.Context, message string) error
}

// Dispatcher routes fire decisions to the configured delivery channels.
//
// The email path is fire-and-forget: its failures are logged and never block
// the browser path or the caller. Permission denial on the browser path is
// reported once and then kept silent, so a user who declined notifications
// is not re-prompted on every polling tick.
type Dispatcher struct {
	browser BrowserNotifier
	email   EmailSender
	logger  *slog.Logger

	mu        sync.Mutex
	requested bool
	granted   bool
}

// NewDispatcher wires the delivery collaborators. Either collaborator may be
// nil, in which case its channel is skipped.
func NewDispatcher(browser BrowserNotifier, email EmailSender, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{browser: browser, email: email, logger: logger}
}

// Dispatch delivers the message on the requested channel. An unknown method
// is the only error surfaced to the caller; channel failures degrade to log
// entries so one broken transport cannot halt the polling loop.
func (d *Dispatcher) Dispatch(ctx context.Context, method Method, message string) error {
	if d == nil {
		return fmt.Errorf("notification: dispatcher is nil")
	}

	switch method {
	case MethodBrowser:
		d.dispatchBrowser(ctx, message)
	case MethodEmail:
		d.dispatchEmail(ctx, message)
	case MethodBoth:
		d.dispatchEmail(ctx, message)
		d.dispatchBrowser(ctx, message)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	return nil
}

func (d *Dispatcher) dispatchBrowser(ctx context.Context, message string) {
	if d.browser == nil {
		return
	}

	if !d.ensurePermission(ctx) {
		return
	}

	if err := d.browser.Post(ctx, message); err != nil {
		d.logger.ErrorContext(ctx, "failed to post browser notification", "error", err)
	}
}

// ensurePermission asks the platform exactly once and caches the answer.
// A denial is logged at that moment and never retried.
func (d *Dispatcher) ensurePermission(ctx context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.requested {
		return d.granted
	}
	d.requested = true

	granted, err := d.browser.RequestPermission(ctx)
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to request notification permission", "error", err)
		return false
	}
	if !granted {
		d.logger.WarnContext(ctx, "browser notification permission denied")
	}
	d.granted = granted
	return granted
}

func (d *Dispatcher) dispatchEmail(ctx context.Context, message string) {
	if d.email == nil {
		return
	}

	// Detach from the caller so a slow transport cannot block the tick or
	// be cancelled by it.
	detached := context.WithoutCancel(ctx)
	go func() {
		if err := d.email.Send(detached, message); err != nil {
			d.logger.ErrorContext(detached, "failed to send reminder email", "error", err)
		}
	}()
}
