package application

import "time"

// RuleInput captures caller provided schedule rule fields. The Pattern tag
// decides which payload fields are consulted.
type RuleInput struct {
	Pattern       string
	Intensity     string
	WeekA         []string
	WeekB         []string
	StartDate     string
	Rate          float64
	BaseFrequency int
	ActiveDays    int
	RestDays      int
}

// ReminderInput captures caller provided reminder fields. An empty ID asks
// the service to mint a fresh identity.
type ReminderInput struct {
	ID      string
	Time    string
	Days    []string
	Enabled bool
	Message string
	Rule    *RuleInput
}

// SettingsInput captures the whole per-user settings aggregate as submitted.
type SettingsInput struct {
	Enabled            bool
	NotificationMethod string
	Reminders          []ReminderInput
}

// SaveSettingsParams wraps the data required to replace a user's settings.
type SaveSettingsParams struct {
	UserID string
	Input  SettingsInput
}

// PreviewParams identifies the reminder whose effective weekdays should be
// computed for a given instant.
type PreviewParams struct {
	UserID     string
	ReminderID string
	AsOf       time.Time
}

// TemplateItemInput captures one reminder prototype inside a template
// submission.
type TemplateItemInput struct {
	Time    string
	Days    []string
	Message string
	Rule    *RuleInput
}

// TemplateInput captures caller provided template fields.
type TemplateInput struct {
	Name        string
	Description string
	Public      bool
	Items       []TemplateItemInput
}

// CreateTemplateParams wraps the data required to create a template.
type CreateTemplateParams struct {
	Author string
	Input  TemplateInput
}

// ListTemplatesParams narrows template listings to what the viewer may see.
type ListTemplatesParams struct {
	Viewer string
	// AuthoredOnly restricts results to the viewer's own templates.
	AuthoredOnly bool
}

// ApplyTemplateParams wraps the data required to copy a template into a
// user's settings.
type ApplyTemplateParams struct {
	UserID     string
	TemplateID string
}
