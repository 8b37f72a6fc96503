package persistence

import (
	"time"

	"github.com/example/wellness-reminders/internal/recurrence"
)

// ReminderSettings is the per-user reminder aggregate as stored. Saves are
// wholesale: the reminder list replaces whatever was persisted before, in
// order.
type ReminderSettings struct {
	UserID             string
	Enabled            bool
	NotificationMethod string
	Reminders          []recurrence.Reminder
	UpdatedAt          time.Time
}

// TemplateItem is one reminder prototype inside a template. Items carry no
// identity of their own; applying a template mints fresh reminder IDs.
type TemplateItem struct {
	Time    string
	Days    []time.Weekday
	Message string
	Rule    *recurrence.ScheduleRule
}

// ReminderTemplate is a shareable bundle of reminder prototypes. Personal
// templates stay private to their author; public ones carry community
// like/download counters.
type ReminderTemplate struct {
	ID          string
	Name        string
	Description string
	Author      string
	Public      bool
	Likes       int
	Downloads   int
	Items       []TemplateItem
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
