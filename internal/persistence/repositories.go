package persistence

import "context"

// SettingsRepository stores per-user reminder settings aggregates.
//
// The store offers eventually consistent key-value access: SaveSettings is
// last-write-wins for the whole aggregate and no cross-user transaction is
// assumed.
type SettingsRepository interface {
	GetSettings(ctx context.Context, userID string) (ReminderSettings, error)
	SaveSettings(ctx context.Context, settings ReminderSettings) error
	DeleteSettings(ctx context.Context, userID string) error
}

// TemplateFilter narrows template listings.
type TemplateFilter struct {
	// Author limits results to templates created by the given author.
	Author string
	// PublicOnly hides private templates from the listing.
	PublicOnly bool
}

// TemplateRepository stores shareable reminder templates and their community
// counters.
type TemplateRepository interface {
	CreateTemplate(ctx context.Context, template ReminderTemplate) error
	GetTemplate(ctx context.Context, id string) (ReminderTemplate, error)
	ListTemplates(ctx context.Context, filter TemplateFilter) ([]ReminderTemplate, error)
	IncrementTemplateLikes(ctx context.Context, id string) error
	IncrementTemplateDownloads(ctx context.Context, id string) error
	DeleteTemplate(ctx context.Context, id string) error
}
