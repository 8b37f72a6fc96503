package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/wellness-reminders/internal/persistence"
	"github.com/example/wellness-reminders/internal/recurrence"
)

// SettingsStore captures the persistence operations needed by the settings
// service.
type SettingsStore interface {
	GetSettings(ctx context.Context, userID string) (persistence.ReminderSettings, error)
	SaveSettings(ctx context.Context, settings persistence.ReminderSettings) error
	DeleteSettings(ctx context.Context, userID string) error
}

// SettingsService orchestrates validation, defaulting, and persistence for
// per-user reminder settings.
type SettingsService struct {
	store       SettingsStore
	idGenerator func() string
	now         func() time.Time
	evaluator   *recurrence.Evaluator
	cache       *settingsCache
	logger      *slog.Logger
}

// NewSettingsService wires dependencies for the settings service.
func NewSettingsService(store SettingsStore, idGenerator func() string, now func() time.Time) *SettingsService {
	return NewSettingsServiceWithLogger(store, idGenerator, now, nil)
}

// NewSettingsServiceWithLogger constructs a settings service with a specified logger.
func NewSettingsServiceWithLogger(store SettingsStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SettingsService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SettingsService{
		store:       store,
		idGenerator: idGenerator,
		now:         now,
		evaluator:   recurrence.NewEvaluator(nil),
		cache:       newSettingsCache(0, 0, now),
		logger:      defaultLogger(logger),
	}
}

// SetCacheTTL adjusts how long loaded aggregates are served from memory
// before the store is consulted again. Call before the service is shared
// across goroutines.
func (s *SettingsService) SetCacheTTL(ttl time.Duration) {
	if s == nil || ttl <= 0 {
		return
	}
	s.cache = newSettingsCache(ttl, 0, s.now)
}

func (s *SettingsService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SettingsService", operation, attrs...)
}

// GetSettings returns the user's settings aggregate. A user who has never
// saved anything receives a freshly persisted default aggregate containing a
// single weekday-morning reminder.
func (s *SettingsService) GetSettings(ctx context.Context, userID string) (settings persistence.ReminderSettings, err error) {
	if s == nil {
		err = fmt.Errorf("SettingsService is nil")
		return
	}
	if userID == "" {
		vErr := &ValidationError{}
		vErr.add("user_id", "user id is required")
		err = vErr
		return
	}

	if cached, ok := s.cache.Get(userID); ok {
		return cached, nil
	}

	logger := s.loggerWith(ctx, "GetSettings", "user_id", userID)

	settings, err = s.store.GetSettings(ctx, userID)
	if errors.Is(err, persistence.ErrNotFound) {
		settings = s.defaultSettings(userID)
		if err = s.store.SaveSettings(ctx, settings); err != nil {
			logger.ErrorContext(ctx, "failed to persist default settings", "error", err, "error_kind", ErrorKind(err))
			return persistence.ReminderSettings{}, err
		}
		logger.InfoContext(ctx, "default settings created")
		s.cache.Store(userID, settings)
		return settings, nil
	}
	if err != nil {
		logger.ErrorContext(ctx, "failed to load settings", "error", err, "error_kind", ErrorKind(err))
		return persistence.ReminderSettings{}, err
	}

	s.cache.Store(userID, settings)
	return settings, nil
}

// PeekSettings returns the user's settings without creating defaults. The
// scheduler polls through this path so unknown users stay unknown.
func (s *SettingsService) PeekSettings(ctx context.Context, userID string) (persistence.ReminderSettings, error) {
	if s == nil {
		return persistence.ReminderSettings{}, fmt.Errorf("SettingsService is nil")
	}

	if cached, ok := s.cache.Get(userID); ok {
		return cached, nil
	}

	settings, err := s.store.GetSettings(ctx, userID)
	if errors.Is(err, persistence.ErrNotFound) {
		return persistence.ReminderSettings{}, ErrNotFound
	}
	if err != nil {
		return persistence.ReminderSettings{}, err
	}

	s.cache.Store(userID, settings)
	return settings, nil
}

// SaveSettings validates and persists the whole aggregate, replacing
// whatever was stored before.
func (s *SettingsService) SaveSettings(ctx context.Context, params SaveSettingsParams) (settings persistence.ReminderSettings, err error) {
	if s == nil {
		err = fmt.Errorf("SettingsService is nil")
		return
	}

	logger := s.loggerWith(ctx, "SaveSettings", "user_id", params.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to save settings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reminder_count", len(settings.Reminders)).InfoContext(ctx, "settings saved")
	}()

	vErr := &ValidationError{}
	if params.UserID == "" {
		vErr.add("user_id", "user id is required")
	}

	method, methodErr := validateMethod(params.Input.NotificationMethod)
	if methodErr != "" {
		vErr.add("notification_method", methodErr)
	}

	reminders := make([]recurrence.Reminder, 0, len(params.Input.Reminders))
	for i, input := range params.Input.Reminders {
		reminder, rErr := buildReminder(input, i, s.idGenerator)
		if rErr.HasErrors() {
			vErr.merge(rErr)
			continue
		}
		s.stampProgressiveStart(reminder.Rule)
		reminders = append(reminders, reminder)
	}

	if vErr.HasErrors() {
		err = vErr
		return
	}

	settings = persistence.ReminderSettings{
		UserID:             params.UserID,
		Enabled:            params.Input.Enabled,
		NotificationMethod: string(method),
		Reminders:          reminders,
		UpdatedAt:          s.now(),
	}

	if err = s.store.SaveSettings(ctx, settings); err != nil {
		settings = persistence.ReminderSettings{}
		return
	}

	s.cache.Store(params.UserID, settings)
	return settings, nil
}

// DeleteSettings removes the user's aggregate entirely.
func (s *SettingsService) DeleteSettings(ctx context.Context, userID string) error {
	if s == nil {
		return fmt.Errorf("SettingsService is nil")
	}

	err := s.store.DeleteSettings(ctx, userID)
	s.cache.Invalidate(userID)
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		s.loggerWith(ctx, "DeleteSettings", "user_id", userID).
			ErrorContext(ctx, "failed to delete settings", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	return nil
}

// PreviewAdjustedDays reports the weekdays a reminder's rule resolves to at
// the given instant. The stored reminder is never modified.
func (s *SettingsService) PreviewAdjustedDays(ctx context.Context, params PreviewParams) ([]time.Weekday, error) {
	if s == nil {
		return nil, fmt.Errorf("SettingsService is nil")
	}

	settings, err := s.PeekSettings(ctx, params.UserID)
	if err != nil {
		return nil, err
	}

	for _, reminder := range settings.Reminders {
		if reminder.ID == params.ReminderID {
			asOf := params.AsOf
			if asOf.IsZero() {
				asOf = s.now()
			}
			return s.evaluator.PreviewAdjustedDays(reminder, asOf), nil
		}
	}
	return nil, ErrNotFound
}

// stampProgressiveStart anchors a progressive rule that was submitted
// without a start date to midnight of the current day. The ramp needs a
// fixed origin or the rule would never fire.
func (s *SettingsService) stampProgressiveStart(rule *recurrence.ScheduleRule) {
	if rule == nil || rule.Pattern != recurrence.PatternProgressive || rule.Progressive == nil {
		return
	}
	if !rule.Progressive.StartDate.IsZero() {
		return
	}
	now := s.now()
	rule.Progressive.StartDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// saveAggregate persists an already validated aggregate and refreshes the
// cache. Same-package services use it for derived writes.
func (s *SettingsService) saveAggregate(ctx context.Context, settings persistence.ReminderSettings) error {
	settings.UpdatedAt = s.now()
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		s.cache.Invalidate(settings.UserID)
		return err
	}
	s.cache.Store(settings.UserID, settings)
	return nil
}

func (s *SettingsService) defaultSettings(userID string) persistence.ReminderSettings {
	return persistence.ReminderSettings{
		UserID:             userID,
		Enabled:            true,
		NotificationMethod: "browser",
		Reminders: []recurrence.Reminder{
			{
				ID:      s.idGenerator(),
				Time:    "09:00",
				Days:    []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
				Enabled: true,
				Message: "Time for a wellness break",
			},
		},
		UpdatedAt: s.now(),
	}
}
