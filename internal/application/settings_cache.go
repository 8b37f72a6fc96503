package application

import (
	"sync"
	"time"

	"github.com/example/wellness-reminders/internal/persistence"
	"github.com/example/wellness-reminders/internal/recurrence"
)

// settingsCache stores recently loaded settings aggregates so the polling
// scheduler does not hit the store on every tick while nothing changed.
// Writers invalidate their user's entry.
type settingsCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]settingsCacheEntry
}

type settingsCacheEntry struct {
	settings  persistence.ReminderSettings
	expiresAt time.Time
}

func newSettingsCache(ttl time.Duration, maxEntries int, now func() time.Time) *settingsCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &settingsCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]settingsCacheEntry),
	}
}

func (c *settingsCache) Get(userID string) (persistence.ReminderSettings, bool) {
	if c == nil {
		return persistence.ReminderSettings{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok {
		return persistence.ReminderSettings{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, userID)
		c.mu.Unlock()
		return persistence.ReminderSettings{}, false
	}
	return cloneSettings(entry.settings), true
}

func (c *settingsCache) Store(userID string, settings persistence.ReminderSettings) {
	if c == nil {
		return
	}
	cloned := cloneSettings(settings)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[userID] = settingsCacheEntry{settings: cloned, expiresAt: expiry}
}

func (c *settingsCache) Invalidate(userID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

func (c *settingsCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *settingsCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

// cloneSettings deep copies the aggregate so cache readers and writers never
// share reminder slices or rule payloads.
func cloneSettings(settings persistence.ReminderSettings) persistence.ReminderSettings {
	cloned := settings
	cloned.Reminders = cloneReminders(settings.Reminders)
	return cloned
}

func cloneReminders(reminders []recurrence.Reminder) []recurrence.Reminder {
	if len(reminders) == 0 {
		return nil
	}
	out := make([]recurrence.Reminder, len(reminders))
	for i, reminder := range reminders {
		out[i] = cloneReminder(reminder)
	}
	return out
}

func cloneReminder(reminder recurrence.Reminder) recurrence.Reminder {
	cloned := reminder
	cloned.Days = append([]time.Weekday(nil), reminder.Days...)
	cloned.Rule = cloneRule(reminder.Rule)
	return cloned
}

func cloneRule(rule *recurrence.ScheduleRule) *recurrence.ScheduleRule {
	if rule == nil {
		return nil
	}
	cloned := *rule
	if rule.Alternating != nil {
		alternating := recurrence.AlternatingRule{
			WeekA: append([]time.Weekday(nil), rule.Alternating.WeekA...),
			WeekB: append([]time.Weekday(nil), rule.Alternating.WeekB...),
		}
		cloned.Alternating = &alternating
	}
	if rule.Progressive != nil {
		progressive := *rule.Progressive
		cloned.Progressive = &progressive
	}
	if rule.Cyclic != nil {
		cyclic := *rule.Cyclic
		cloned.Cyclic = &cyclic
	}
	return &cloned
}
