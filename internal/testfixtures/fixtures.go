package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/wellness-reminders/internal/persistence"
	"github.com/example/wellness-reminders/internal/recurrence"
)

var (
	reminderCounter uint64
	settingsCounter uint64
	templateCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// --------------------------- Reminder fixtures ---------------------------

// ReminderFixture represents a deterministic reminder record.
type ReminderFixture struct {
	ID      string
	Time    string
	Days    []time.Weekday
	Enabled bool
	Message string
	Rule    *recurrence.ScheduleRule
}

// ReminderOption configures the generated reminder fixture.
type ReminderOption func(*ReminderFixture)

// NewReminderFixture returns a deterministic reminder fixture with optional
// overrides. The default reminder fires Monday mornings.
func NewReminderFixture(opts ...ReminderOption) ReminderFixture {
	idx := atomic.AddUint64(&reminderCounter, 1)
	fixture := ReminderFixture{
		ID:      fmt.Sprintf("reminder-%03d", idx),
		Time:    "09:00",
		Days:    []time.Weekday{time.Monday},
		Enabled: true,
		Message: fmt.Sprintf("Check-in %03d", idx),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReminderID overrides the generated reminder ID.
func WithReminderID(id string) ReminderOption {
	return func(f *ReminderFixture) {
		f.ID = id
	}
}

// WithReminderTime sets the HH:MM fire time.
func WithReminderTime(clock string) ReminderOption {
	return func(f *ReminderFixture) {
		f.Time = clock
	}
}

// WithReminderDays sets the firing weekdays.
func WithReminderDays(days ...time.Weekday) ReminderOption {
	return func(f *ReminderFixture) {
		f.Days = append([]time.Weekday(nil), days...)
	}
}

// WithReminderEnabled toggles the per-reminder switch.
func WithReminderEnabled(enabled bool) ReminderOption {
	return func(f *ReminderFixture) {
		f.Enabled = enabled
	}
}

// WithReminderMessage overrides the notification message.
func WithReminderMessage(message string) ReminderOption {
	return func(f *ReminderFixture) {
		f.Message = message
	}
}

// WithReminderRule attaches a schedule rule to the fixture.
func WithReminderRule(rule *recurrence.ScheduleRule) ReminderOption {
	return func(f *ReminderFixture) {
		f.Rule = rule
	}
}

// Reminder returns the fixture as a recurrence.Reminder value.
func (f ReminderFixture) Reminder() recurrence.Reminder {
	return recurrence.Reminder{
		ID:      f.ID,
		Time:    f.Time,
		Days:    append([]time.Weekday(nil), f.Days...),
		Enabled: f.Enabled,
		Message: f.Message,
		Rule:    f.Rule,
	}
}

// --------------------------- Settings fixtures ---------------------------

// SettingsFixture represents a deterministic per-user settings aggregate.
type SettingsFixture struct {
	UserID             string
	Enabled            bool
	NotificationMethod string
	Reminders          []ReminderFixture
	UpdatedAt          time.Time
}

// SettingsOption configures the generated settings fixture.
type SettingsOption func(*SettingsFixture)

// NewSettingsFixture returns a deterministic settings fixture containing one
// reminder, with optional overrides.
func NewSettingsFixture(opts ...SettingsOption) SettingsFixture {
	idx := atomic.AddUint64(&settingsCounter, 1)
	fixture := SettingsFixture{
		UserID:             fmt.Sprintf("user-%03d", idx),
		Enabled:            true,
		NotificationMethod: "browser",
		Reminders:          []ReminderFixture{NewReminderFixture()},
		UpdatedAt:          referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSettingsUserID overrides the generated user ID.
func WithSettingsUserID(id string) SettingsOption {
	return func(f *SettingsFixture) {
		f.UserID = id
	}
}

// WithSettingsEnabled toggles the master switch.
func WithSettingsEnabled(enabled bool) SettingsOption {
	return func(f *SettingsFixture) {
		f.Enabled = enabled
	}
}

// WithSettingsMethod sets the notification method.
func WithSettingsMethod(method string) SettingsOption {
	return func(f *SettingsFixture) {
		f.NotificationMethod = method
	}
}

// WithSettingsReminders replaces the reminder list.
func WithSettingsReminders(reminders ...ReminderFixture) SettingsOption {
	return func(f *SettingsFixture) {
		f.Reminders = append([]ReminderFixture(nil), reminders...)
	}
}

// WithSettingsUpdatedAt sets the aggregate timestamp.
func WithSettingsUpdatedAt(t time.Time) SettingsOption {
	return func(f *SettingsFixture) {
		f.UpdatedAt = t
	}
}

// Persistence returns the fixture as a persistence.ReminderSettings value.
func (f SettingsFixture) Persistence() persistence.ReminderSettings {
	reminders := make([]recurrence.Reminder, 0, len(f.Reminders))
	for _, reminder := range f.Reminders {
		reminders = append(reminders, reminder.Reminder())
	}
	return persistence.ReminderSettings{
		UserID:             f.UserID,
		Enabled:            f.Enabled,
		NotificationMethod: f.NotificationMethod,
		Reminders:          reminders,
		UpdatedAt:          f.UpdatedAt,
	}
}

// --------------------------- Template fixtures ---------------------------

// TemplateFixture represents a deterministic reminder template.
type TemplateFixture struct {
	ID          string
	Name        string
	Description string
	Author      string
	Public      bool
	Likes       int
	Downloads   int
	Items       []persistence.TemplateItem
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TemplateOption configures the generated template fixture.
type TemplateOption func(*TemplateFixture)

// NewTemplateFixture returns a deterministic template fixture with optional
// overrides.
func NewTemplateFixture(opts ...TemplateOption) TemplateFixture {
	idx := atomic.AddUint64(&templateCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := TemplateFixture{
		ID:          fmt.Sprintf("template-%03d", idx),
		Name:        fmt.Sprintf("Template %03d", idx),
		Description: "A deterministic template fixture",
		Author:      fmt.Sprintf("user-%03d", idx),
		Public:      false,
		Items: []persistence.TemplateItem{
			{
				Time:    "08:00",
				Days:    []time.Weekday{time.Monday, time.Wednesday, time.Friday},
				Message: "Morning routine",
			},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithTemplateID overrides the generated template ID.
func WithTemplateID(id string) TemplateOption {
	return func(f *TemplateFixture) {
		f.ID = id
	}
}

// WithTemplateName overrides the template name.
func WithTemplateName(name string) TemplateOption {
	return func(f *TemplateFixture) {
		f.Name = name
	}
}

// WithTemplateDescription overrides the description.
func WithTemplateDescription(description string) TemplateOption {
	return func(f *TemplateFixture) {
		f.Description = description
	}
}

// WithTemplateAuthor sets the author user ID.
func WithTemplateAuthor(author string) TemplateOption {
	return func(f *TemplateFixture) {
		f.Author = author
	}
}

// WithTemplatePublic toggles template visibility.
func WithTemplatePublic(public bool) TemplateOption {
	return func(f *TemplateFixture) {
		f.Public = public
	}
}

// WithTemplateCounters sets both community counters.
func WithTemplateCounters(likes, downloads int) TemplateOption {
	return func(f *TemplateFixture) {
		f.Likes = likes
		f.Downloads = downloads
	}
}

// WithTemplateItems replaces the item list.
func WithTemplateItems(items ...persistence.TemplateItem) TemplateOption {
	return func(f *TemplateFixture) {
		f.Items = append([]persistence.TemplateItem(nil), items...)
	}
}

// WithTemplateTimestamps sets both created and updated timestamps.
func WithTemplateTimestamps(created, updated time.Time) TemplateOption {
	return func(f *TemplateFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Persistence returns the fixture as a persistence.ReminderTemplate value.
func (f TemplateFixture) Persistence() persistence.ReminderTemplate {
	return persistence.ReminderTemplate{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		Author:      f.Author,
		Public:      f.Public,
		Likes:       f.Likes,
		Downloads:   f.Downloads,
		Items:       append([]persistence.TemplateItem(nil), f.Items...),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}
