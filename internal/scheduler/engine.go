package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/wellness-reminders/internal/notification"
	"github.com/example/wellness-reminders/internal/recurrence"
)

// DefaultInterval is the polling cadence. Combined with the evaluator's
// one-minute tolerance it guarantees every nominal fire minute is observed
// by at least one tick.
const DefaultInterval = 60 * time.Second

// Settings is the per-user reminder aggregate the engine evaluates on each
// tick.
type Settings struct {
	Enabled   bool
	Method    notification.Method
	Reminders []recurrence.Reminder
}

// SettingsSource loads the reminder aggregate for a user. A nil result with
// a nil error means no settings are persisted yet; the engine skips the tick.
type SettingsSource interface {
	LoadSettings(ctx context.Context, userID string) (*Settings, error)
}

// Dispatcher forwards fire decisions to the delivery channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, method notification.Method, message string) error
}

// Engine owns the polling lifecycle for one active user session.
//
// It is an explicitly constructed object: collaborators are injected at
// construction and the "only one active run" invariant is enforced here, not
// through hidden global state. Start replaces any previous run, so the owner
// of the engine (typically the session layer) can switch users by calling
// Start again.
type Engine struct {
	source     SettingsSource
	dispatcher Dispatcher
	evaluator  *recurrence.Evaluator
	now        func() time.Time
	interval   time.Duration
	logger     *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	userID string
	wake   chan struct{}

	// fired maps reminder ID to the nominal fire minute last dispatched,
	// suppressing the second tick that can land inside the same tolerance
	// window. Guarded by its own mutex so the run loop never contends with
	// the lifecycle lock. The map survives a same-user restart and is reset
	// on user switch.
	firedMu   sync.Mutex
	fired     map[string]string
	firedUser string
}

// NewEngine wires the engine's collaborators. A nil evaluator, clock or
// non-positive interval fall back to defaults.
func NewEngine(source SettingsSource, dispatcher Dispatcher, evaluator *recurrence.Evaluator, now func() time.Time, interval time.Duration) *Engine {
	return NewEngineWithLogger(source, dispatcher, evaluator, now, interval, nil)
}

// NewEngineWithLogger wires the engine with an explicit logger.
func NewEngineWithLogger(source SettingsSource, dispatcher Dispatcher, evaluator *recurrence.Evaluator, now func() time.Time, interval time.Duration, logger *slog.Logger) *Engine {
	if evaluator == nil {
		evaluator = recurrence.NewEvaluator(nil)
	}
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		source:     source,
		dispatcher: dispatcher,
		evaluator:  evaluator,
		now:        now,
		interval:   interval,
		logger:     logger,
		fired:      make(map[string]string),
	}
}

// Start begins polling for the given user. Any run already in progress is
// stopped first, so at most one polling loop exists per engine.
func (e *Engine) Start(userID string) error {
	if e == nil || e.source == nil || e.dispatcher == nil {
		return fmt.Errorf("scheduler: engine is not fully wired")
	}

	e.mu.Lock()
	e.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	wake := make(chan struct{}, 1)

	e.cancel = cancel
	e.done = done
	e.userID = userID
	e.wake = wake
	e.mu.Unlock()

	e.firedMu.Lock()
	if e.firedUser != userID {
		e.fired = make(map[string]string)
		e.firedUser = userID
	}
	e.firedMu.Unlock()

	e.logger.Info("reminder engine started", "user_id", userID, "interval", e.interval)

	go e.run(ctx, userID, wake, done)
	return nil
}

// Stop cancels the polling loop and waits for it to exit. It is idempotent.
func (e *Engine) Stop() {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.stopLocked()
	e.mu.Unlock()
}

// stopLocked cancels the current run and waits for its goroutine to exit.
// The run loop never takes e.mu, so holding it here cannot deadlock.
func (e *Engine) stopLocked() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
	e.cancel = nil
	e.done = nil
	e.userID = ""
	e.wake = nil
	e.logger.Info("reminder engine stopped")
}

// Notify requests an immediate re-evaluation without waiting for the next
// tick. Non-blocking if a check is already pending.
func (e *Engine) Notify() {
	e.mu.Lock()
	wake := e.wake
	e.mu.Unlock()
	if wake == nil {
		return
	}
	select {
	case wake <- struct{}{}:
	default:
	}
}

// Running reports whether a polling loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancel != nil
}

// ActiveUser returns the user the engine is polling for, if any.
func (e *Engine) ActiveUser() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.userID, e.cancel != nil
}

func (e *Engine) run(ctx context.Context, userID string, wake <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.tick(ctx, userID)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx, userID)
		case <-wake:
			e.tick(ctx, userID)
		}
	}
}

// tick loads the user's settings and evaluates every reminder against now.
// Failures are logged and contained: a store error skips the whole tick, a
// single bad reminder never suppresses the rest, and nothing is retried
// before the next tick.
func (e *Engine) tick(ctx context.Context, userID string) {
	settings, err := e.source.LoadSettings(ctx, userID)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to load reminder settings", "user_id", userID, "error", err)
		return
	}
	if settings == nil || !settings.Enabled {
		return
	}

	now := e.now()
	for _, reminder := range settings.Reminders {
		if !e.evaluator.ShouldFire(reminder, now) {
			continue
		}
		if !e.markFired(reminder, now) {
			continue
		}
		if err := e.dispatcher.Dispatch(ctx, settings.Method, reminder.Message); err != nil {
			e.logger.ErrorContext(ctx, "failed to dispatch reminder", "user_id", userID, "reminder_id", reminder.ID, "error", err)
		}
	}
}

// markFired records the nominal fire minute for the reminder and reports
// whether this observation is the first one. The one-minute tolerance means
// two consecutive ticks can both see the same nominal minute; only the first
// reaches the dispatcher.
func (e *Engine) markFired(reminder recurrence.Reminder, now time.Time) bool {
	key := nominalFireKey(reminder.Time, now)

	e.firedMu.Lock()
	defer e.firedMu.Unlock()
	if e.fired[reminder.ID] == key {
		return false
	}
	e.fired[reminder.ID] = key
	return true
}

// nominalFireKey identifies the nominal fire minute observed at now. The
// nominal minute may belong to the adjacent calendar day when the tolerance
// window straddles midnight, so the closer of the two candidates wins.
func nominalFireKey(clock string, now time.Time) string {
	target, err := recurrence.ParseClock(clock)
	if err != nil {
		return now.Format("2006-01-02 15:04")
	}

	day := now.Format("2006-01-02")
	current := now.Hour()*60 + now.Minute()
	switch {
	case current-target > 12*60:
		day = now.AddDate(0, 0, 1).Format("2006-01-02")
	case target-current > 12*60:
		day = now.AddDate(0, 0, -1).Format("2006-01-02")
	}
	return fmt.Sprintf("%s %s", day, clock)
}
