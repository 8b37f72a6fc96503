package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/wellness-reminders/internal/persistence"
	"github.com/example/wellness-reminders/internal/recurrence"
)

// TemplateStore captures the persistence operations needed by the template
// service.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, template persistence.ReminderTemplate) error
	GetTemplate(ctx context.Context, id string) (persistence.ReminderTemplate, error)
	ListTemplates(ctx context.Context, filter persistence.TemplateFilter) ([]persistence.ReminderTemplate, error)
	IncrementTemplateLikes(ctx context.Context, id string) error
	IncrementTemplateDownloads(ctx context.Context, id string) error
	DeleteTemplate(ctx context.Context, id string) error
}

// TemplateService orchestrates shareable reminder templates: authoring,
// discovery, and copying a template into a user's own settings.
type TemplateService struct {
	templates   TemplateStore
	settings    *SettingsService
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewTemplateService wires dependencies for the template service.
func NewTemplateService(templates TemplateStore, settings *SettingsService, idGenerator func() string, now func() time.Time) *TemplateService {
	return NewTemplateServiceWithLogger(templates, settings, idGenerator, now, nil)
}

// NewTemplateServiceWithLogger constructs a template service with a specified logger.
func NewTemplateServiceWithLogger(templates TemplateStore, settings *SettingsService, idGenerator func() string, now func() time.Time, logger *slog.Logger) *TemplateService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &TemplateService{
		templates:   templates,
		settings:    settings,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *TemplateService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TemplateService", operation, attrs...)
}

// CreateTemplate validates input and persists a new template.
func (s *TemplateService) CreateTemplate(ctx context.Context, params CreateTemplateParams) (template persistence.ReminderTemplate, err error) {
	if s == nil {
		err = fmt.Errorf("TemplateService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateTemplate", "author", params.Author)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create template", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("template_id", template.ID).InfoContext(ctx, "template created")
	}()

	vErr := &ValidationError{}
	if params.Author == "" {
		vErr.add("author", "author is required")
	}
	name := strings.TrimSpace(params.Input.Name)
	if name == "" {
		vErr.add("name", "name is required")
	}
	if len(params.Input.Items) == 0 {
		vErr.add("items", "at least one reminder item is required")
	}

	items := make([]persistence.TemplateItem, 0, len(params.Input.Items))
	for i, input := range params.Input.Items {
		item, iErr := buildTemplateItem(input, i)
		if iErr.HasErrors() {
			vErr.merge(iErr)
			continue
		}
		items = append(items, item)
	}

	if vErr.HasErrors() {
		err = vErr
		return
	}

	created := s.now()
	template = persistence.ReminderTemplate{
		ID:          s.idGenerator(),
		Name:        name,
		Description: strings.TrimSpace(params.Input.Description),
		Author:      params.Author,
		Public:      params.Input.Public,
		Items:       items,
		CreatedAt:   created,
		UpdatedAt:   created,
	}

	if err = s.templates.CreateTemplate(ctx, template); err != nil {
		template = persistence.ReminderTemplate{}
		return
	}
	return template, nil
}

// GetTemplate returns a template the viewer is allowed to see. Private
// templates are only visible to their author.
func (s *TemplateService) GetTemplate(ctx context.Context, viewer, id string) (persistence.ReminderTemplate, error) {
	if s == nil {
		return persistence.ReminderTemplate{}, fmt.Errorf("TemplateService is nil")
	}

	template, err := s.templates.GetTemplate(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return persistence.ReminderTemplate{}, ErrNotFound
	}
	if err != nil {
		return persistence.ReminderTemplate{}, err
	}
	if !template.Public && template.Author != viewer {
		return persistence.ReminderTemplate{}, ErrNotFound
	}
	return template, nil
}

// ListTemplates returns the templates visible to the viewer: all public ones
// plus the viewer's own, newest first.
func (s *TemplateService) ListTemplates(ctx context.Context, params ListTemplatesParams) ([]persistence.ReminderTemplate, error) {
	if s == nil {
		return nil, fmt.Errorf("TemplateService is nil")
	}

	if params.AuthoredOnly {
		return s.templates.ListTemplates(ctx, persistence.TemplateFilter{Author: params.Viewer})
	}

	public, err := s.templates.ListTemplates(ctx, persistence.TemplateFilter{PublicOnly: true})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(public))
	merged := make([]persistence.ReminderTemplate, 0, len(public))
	for _, template := range public {
		seen[template.ID] = true
		merged = append(merged, template)
	}

	if params.Viewer != "" {
		authored, err := s.templates.ListTemplates(ctx, persistence.TemplateFilter{Author: params.Viewer})
		if err != nil {
			return nil, err
		}
		for _, template := range authored {
			if !seen[template.ID] {
				merged = append(merged, template)
			}
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].ID < merged[j].ID
		}
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged, nil
}

// LikeTemplate bumps the like counter of a template the viewer can see.
func (s *TemplateService) LikeTemplate(ctx context.Context, viewer, id string) error {
	if s == nil {
		return fmt.Errorf("TemplateService is nil")
	}

	if _, err := s.GetTemplate(ctx, viewer, id); err != nil {
		return err
	}
	if err := s.templates.IncrementTemplateLikes(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// DeleteTemplate removes a template. Only the author may delete.
func (s *TemplateService) DeleteTemplate(ctx context.Context, viewer, id string) error {
	if s == nil {
		return fmt.Errorf("TemplateService is nil")
	}

	template, err := s.GetTemplate(ctx, viewer, id)
	if err != nil {
		return err
	}
	if template.Author != viewer {
		return ErrUnauthorized
	}
	if err := s.templates.DeleteTemplate(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// ApplyTemplate copies the template's items into the user's settings as new
// reminders. Every copied reminder gets a fresh identity, progressive rules
// snapshot their base frequency and start date at apply time, and the
// template's download counter is bumped.
func (s *TemplateService) ApplyTemplate(ctx context.Context, params ApplyTemplateParams) (settings persistence.ReminderSettings, err error) {
	if s == nil {
		err = fmt.Errorf("TemplateService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ApplyTemplate",
		"user_id", params.UserID,
		"template_id", params.TemplateID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to apply template", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reminder_count", len(settings.Reminders)).InfoContext(ctx, "template applied")
	}()

	template, err := s.GetTemplate(ctx, params.UserID, params.TemplateID)
	if err != nil {
		return persistence.ReminderSettings{}, err
	}

	settings, err = s.settings.GetSettings(ctx, params.UserID)
	if err != nil {
		return persistence.ReminderSettings{}, err
	}

	for _, item := range template.Items {
		settings.Reminders = append(settings.Reminders, s.materializeItem(item))
	}

	if err = s.settings.saveAggregate(ctx, settings); err != nil {
		return persistence.ReminderSettings{}, err
	}

	if bumpErr := s.templates.IncrementTemplateDownloads(ctx, params.TemplateID); bumpErr != nil {
		// The copy already succeeded; a lost counter bump is not worth
		// failing the operation.
		logger.WarnContext(ctx, "failed to bump download counter", "error", bumpErr)
	}

	return settings, nil
}

// materializeItem turns a template prototype into a live reminder with its
// own identity.
func (s *TemplateService) materializeItem(item persistence.TemplateItem) recurrence.Reminder {
	rule := cloneRule(item.Rule)
	if rule != nil && rule.Pattern == recurrence.PatternProgressive && rule.Progressive != nil {
		if rule.Progressive.BaseFrequency <= 0 {
			rule.Progressive.BaseFrequency = len(item.Days)
		}
		if rule.Progressive.StartDate.IsZero() {
			now := s.now()
			rule.Progressive.StartDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		}
	}
	return recurrence.Reminder{
		ID:      s.idGenerator(),
		Time:    item.Time,
		Days:    append([]time.Weekday(nil), item.Days...),
		Enabled: true,
		Message: item.Message,
		Rule:    rule,
	}
}

// buildTemplateItem validates one template item submission.
func buildTemplateItem(input TemplateItemInput, index int) (persistence.TemplateItem, *ValidationError) {
	vErr := &ValidationError{}
	field := func(name string) string {
		return fmt.Sprintf("items[%d].%s", index, name)
	}

	clock := strings.TrimSpace(input.Time)
	if clock == "" {
		vErr.add(field("time"), "time is required")
	} else if _, err := recurrence.ParseClock(clock); err != nil {
		vErr.add(field("time"), "time must be HH:MM")
	}

	days, dayErr := parseDayTokens(input.Days)
	if dayErr != "" {
		vErr.add(field("days"), dayErr)
	}

	rule, ruleErrs := buildRule(input.Rule, field, len(days))
	vErr.merge(ruleErrs)

	if vErr.HasErrors() {
		return persistence.TemplateItem{}, vErr
	}

	return persistence.TemplateItem{
		Time:    clock,
		Days:    days,
		Message: strings.TrimSpace(input.Message),
		Rule:    rule,
	}, nil
}
