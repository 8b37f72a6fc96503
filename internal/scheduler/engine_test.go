package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/wellness-reminders/internal/notification"
	"github.com/example/wellness-reminders/internal/recurrence"
	"github.com/example/wellness-reminders/internal/testfixtures"
)

type sourceStub struct {
	mu       sync.Mutex
	settings *Settings
	err      error
	loads    int
}

func (s *sourceStub) LoadSettings(ctx context.Context, userID string) (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	return s.settings, nil
}

func (s *sourceStub) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

func (s *sourceStub) set(settings *Settings, err error) {
	s.mu.Lock()
	s.settings = settings
	s.err = err
	s.mu.Unlock()
}

type dispatchRecord struct {
	method  notification.Method
	message string
}

type dispatcherStub struct {
	mu      sync.Mutex
	err     error
	records []dispatchRecord
}

func (d *dispatcherStub) Dispatch(ctx context.Context, method notification.Method, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, dispatchRecord{method: method, message: message})
	return d.err
}

func (d *dispatcherStub) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}

func (d *dispatcherStub) record(i int) dispatchRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.records[i]
}

// waitUntil polls the condition until it holds or the deadline passes.
func waitUntil(t *testing.T, what string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func mondaySettings() *Settings {
	return &Settings{
		Enabled: true,
		Method:  notification.MethodBrowser,
		Reminders: []recurrence.Reminder{{
			ID:      "rem-1",
			Time:    "14:30",
			Days:    []time.Weekday{time.Monday},
			Enabled: true,
			Message: "afternoon check-in",
		}},
	}
}

// monday 2024-01-01 at the given wall clock.
func mondayAt(hour, minute, second int) time.Time {
	return time.Date(2024, time.January, 1, hour, minute, second, 0, time.UTC)
}

func newTestEngine(source SettingsSource, dispatcher Dispatcher, clock *testfixtures.Clock) *Engine {
	// A one-hour ticker keeps the loop quiet so tests drive every tick
	// explicitly through Notify.
	return NewEngine(source, dispatcher, recurrence.NewEvaluator(nil), clock.NowFunc(), time.Hour)
}

func TestEngineDispatchesOncePerFireInstant(t *testing.T) {
	clock := testfixtures.NewClock(mondayAt(14, 30, 30))
	source := &sourceStub{settings: mondaySettings()}
	dispatcher := &dispatcherStub{}
	engine := newTestEngine(source, dispatcher, clock)

	if err := engine.Start("user-1"); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	defer engine.Stop()

	waitUntil(t, "the initial dispatch", func() bool { return dispatcher.count() == 1 })

	record := dispatcher.record(0)
	if record.method != notification.MethodBrowser || record.message != "afternoon check-in" {
		t.Fatalf("unexpected dispatch %+v", record)
	}

	// The next tick lands one minute later, still inside the tolerance
	// window of the same nominal minute; it must not dispatch again.
	loads := source.loadCount()
	clock.Set(mondayAt(14, 31, 30))
	engine.Notify()
	waitUntil(t, "the suppressed tick", func() bool { return source.loadCount() > loads })

	if dispatcher.count() != 1 {
		t.Fatalf("expected a single dispatch for one fire instant, got %d", dispatcher.count())
	}

	// A week later the nominal minute is new and fires again.
	clock.Set(mondayAt(14, 30, 0).AddDate(0, 0, 7))
	engine.Notify()
	waitUntil(t, "the next week's dispatch", func() bool { return dispatcher.count() == 2 })
}

func TestEngineSkipsTicks(t *testing.T) {
	t.Run("missing settings", func(t *testing.T) {
		clock := testfixtures.NewClock(mondayAt(14, 30, 0))
		source := &sourceStub{settings: nil}
		dispatcher := &dispatcherStub{}
		engine := newTestEngine(source, dispatcher, clock)

		if err := engine.Start("user-1"); err != nil {
			t.Fatalf("expected start to succeed, got %v", err)
		}
		defer engine.Stop()

		waitUntil(t, "the initial tick", func() bool { return source.loadCount() >= 1 })
		if dispatcher.count() != 0 {
			t.Fatalf("expected no dispatch without settings, got %d", dispatcher.count())
		}
	})

	t.Run("master switch off", func(t *testing.T) {
		clock := testfixtures.NewClock(mondayAt(14, 30, 0))
		settings := mondaySettings()
		settings.Enabled = false
		source := &sourceStub{settings: settings}
		dispatcher := &dispatcherStub{}
		engine := newTestEngine(source, dispatcher, clock)

		if err := engine.Start("user-1"); err != nil {
			t.Fatalf("expected start to succeed, got %v", err)
		}
		defer engine.Stop()

		waitUntil(t, "the initial tick", func() bool { return source.loadCount() >= 1 })
		if dispatcher.count() != 0 {
			t.Fatalf("expected no dispatch with the master switch off, got %d", dispatcher.count())
		}
	})

	t.Run("store failure is retried on the next tick", func(t *testing.T) {
		clock := testfixtures.NewClock(mondayAt(14, 30, 0))
		source := &sourceStub{err: errors.New("store down")}
		dispatcher := &dispatcherStub{}
		engine := newTestEngine(source, dispatcher, clock)

		if err := engine.Start("user-1"); err != nil {
			t.Fatalf("expected start to succeed, got %v", err)
		}
		defer engine.Stop()

		waitUntil(t, "the failing tick", func() bool { return source.loadCount() >= 1 })
		if dispatcher.count() != 0 {
			t.Fatalf("expected no dispatch on store failure, got %d", dispatcher.count())
		}

		source.set(mondaySettings(), nil)
		engine.Notify()
		waitUntil(t, "the recovered dispatch", func() bool { return dispatcher.count() == 1 })
	})
}

func TestEngineContainsPerReminderFailures(t *testing.T) {
	clock := testfixtures.NewClock(mondayAt(14, 30, 0))
	settings := mondaySettings()
	settings.Reminders = append([]recurrence.Reminder{
		{
			// Malformed alternating rule: silently non-firing.
			ID:      "rem-bad-rule",
			Time:    "14:30",
			Days:    []time.Weekday{time.Monday},
			Enabled: true,
			Rule:    &recurrence.ScheduleRule{Pattern: recurrence.PatternAlternating},
		},
		{
			ID:      "rem-bad-clock",
			Time:    "half past two",
			Days:    []time.Weekday{time.Monday},
			Enabled: true,
		},
	}, settings.Reminders...)

	source := &sourceStub{settings: settings}
	dispatcher := &dispatcherStub{err: errors.New("delivery flaked")}
	engine := newTestEngine(source, dispatcher, clock)

	if err := engine.Start("user-1"); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	defer engine.Stop()

	// The healthy reminder still reaches the dispatcher even though its
	// siblings are broken and the dispatcher itself errors.
	waitUntil(t, "the healthy reminder's dispatch", func() bool { return dispatcher.count() == 1 })
	if record := dispatcher.record(0); record.message != "afternoon check-in" {
		t.Fatalf("unexpected dispatch %+v", record)
	}
}

func TestEngineLifecycle(t *testing.T) {
	t.Run("start replaces the previous run", func(t *testing.T) {
		clock := testfixtures.NewClock(mondayAt(14, 30, 0))
		source := &sourceStub{settings: mondaySettings()}
		dispatcher := &dispatcherStub{}
		engine := newTestEngine(source, dispatcher, clock)

		if err := engine.Start("user-1"); err != nil {
			t.Fatalf("expected start to succeed, got %v", err)
		}
		waitUntil(t, "the first dispatch", func() bool { return dispatcher.count() == 1 })

		if err := engine.Start("user-1"); err != nil {
			t.Fatalf("expected restart to succeed, got %v", err)
		}
		defer engine.Stop()

		if user, ok := engine.ActiveUser(); !ok || user != "user-1" {
			t.Fatalf("expected an active run for user-1, got %q, %v", user, ok)
		}

		// The restart's initial tick observes the same nominal minute and
		// must not dispatch a duplicate.
		loads := source.loadCount()
		waitUntil(t, "the restart's initial tick", func() bool { return source.loadCount() > loads })
		if dispatcher.count() != 1 {
			t.Fatalf("expected no duplicate dispatch across a restart, got %d", dispatcher.count())
		}

		// Exactly one loop answers a Notify.
		loads = source.loadCount()
		engine.Notify()
		waitUntil(t, "the notified tick", func() bool { return source.loadCount() > loads })
		time.Sleep(20 * time.Millisecond)
		if source.loadCount() != loads+1 {
			t.Fatalf("expected exactly one loop to answer Notify, got %d extra ticks", source.loadCount()-loads)
		}
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		clock := testfixtures.NewClock(mondayAt(14, 30, 0))
		source := &sourceStub{settings: mondaySettings()}
		engine := newTestEngine(source, &dispatcherStub{}, clock)

		if err := engine.Start("user-1"); err != nil {
			t.Fatalf("expected start to succeed, got %v", err)
		}
		engine.Stop()
		engine.Stop()

		if engine.Running() {
			t.Fatalf("expected the engine to be stopped")
		}
		if _, ok := engine.ActiveUser(); ok {
			t.Fatalf("expected no active user after stop")
		}

		// Notify on a stopped engine is a no-op.
		engine.Notify()
	})

	t.Run("switching users resets duplicate suppression", func(t *testing.T) {
		clock := testfixtures.NewClock(mondayAt(14, 30, 0))
		source := &sourceStub{settings: mondaySettings()}
		dispatcher := &dispatcherStub{}
		engine := newTestEngine(source, dispatcher, clock)

		if err := engine.Start("user-1"); err != nil {
			t.Fatalf("expected start to succeed, got %v", err)
		}
		waitUntil(t, "the first user's dispatch", func() bool { return dispatcher.count() == 1 })

		if err := engine.Start("user-2"); err != nil {
			t.Fatalf("expected user switch to succeed, got %v", err)
		}
		defer engine.Stop()

		waitUntil(t, "the second user's dispatch", func() bool { return dispatcher.count() == 2 })
	})

	t.Run("rejects a partially wired engine", func(t *testing.T) {
		engine := NewEngine(nil, nil, nil, nil, 0)
		if err := engine.Start("user-1"); err == nil {
			t.Fatalf("expected an error for a partially wired engine")
		}
	})
}

func TestEngineFiresAtLocalWallClock(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}

	settings := &Settings{
		Enabled: true,
		Method:  notification.MethodBrowser,
		Reminders: []recurrence.Reminder{{
			ID:      "rem-1",
			Time:    "09:00",
			Days:    []time.Weekday{time.Monday},
			Enabled: true,
			Message: "morning check-in",
		}},
	}
	source := &sourceStub{settings: settings}
	dispatcher := &dispatcherStub{}

	// Monday 09:00 in Tokyo is Monday midnight UTC; an engine whose
	// evaluator shares the clock's location must fire here.
	clock := testfixtures.NewClock(time.Date(2024, time.January, 8, 9, 0, 30, 0, tokyo))
	engine := NewEngine(source, dispatcher, recurrence.NewEvaluator(tokyo), clock.NowFunc(), time.Hour)

	if err := engine.Start("user-1"); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	defer engine.Stop()

	waitUntil(t, "the local-time dispatch", func() bool { return dispatcher.count() == 1 })

	if record := dispatcher.record(0); record.message != "morning check-in" {
		t.Fatalf("unexpected dispatch %+v", record)
	}

	// Nine hours later the UTC wall clock reads 09:00 but local time is
	// 18:00; the reminder must stay quiet.
	loads := source.loadCount()
	clock.Set(time.Date(2024, time.January, 8, 18, 0, 0, 0, tokyo))
	engine.Notify()
	waitUntil(t, "the evening tick", func() bool { return source.loadCount() > loads })

	if dispatcher.count() != 1 {
		t.Fatalf("expected no dispatch at 09:00 UTC, got %d", dispatcher.count())
	}
}
