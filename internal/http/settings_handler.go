package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/wellness-reminders/internal/application"
	"github.com/example/wellness-reminders/internal/persistence"
	"github.com/example/wellness-reminders/internal/recurrence"
)

type settingsService interface {
	GetSettings(ctx context.Context, userID string) (persistence.ReminderSettings, error)
	SaveSettings(ctx context.Context, params application.SaveSettingsParams) (persistence.ReminderSettings, error)
	PreviewAdjustedDays(ctx context.Context, params application.PreviewParams) ([]time.Weekday, error)
}

// EngineWaker pokes the scheduler so a settings change is picked up without
// waiting for the next poll.
type EngineWaker interface {
	Notify()
}

type SettingsHandler struct {
	service   settingsService
	waker     EngineWaker
	responder responder
	logger    *slog.Logger
}

func NewSettingsHandler(service settingsService, waker EngineWaker, logger *slog.Logger) *SettingsHandler {
	base := defaultLogger(logger)
	return &SettingsHandler{service: service, waker: waker, responder: newResponder(base), logger: base}
}

func (h *SettingsHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SettingsHandler", operation, attrs...)
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID, ok := UserIDFromContext(r.Context())
	if !ok || strings.TrimSpace(userID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	settings, err := h.service.GetSettings(r.Context(), userID)
	if err != nil {
		h.log(r.Context(), "Get", "user_id", userID).ErrorContext(r.Context(), "failed to load settings", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, settingsResponse{Settings: toSettingsDTO(settings)})
}

func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID, ok := UserIDFromContext(r.Context())
	if !ok || strings.TrimSpace(userID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Put", "user_id", userID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode settings request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Put", "user_id", userID)

	settings, err := h.service.SaveSettings(r.Context(), application.SaveSettingsParams{
		UserID: userID,
		Input:  req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to save settings", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if h.waker != nil {
		h.waker.Notify()
	}

	logger.With("reminder_count", len(settings.Reminders)).InfoContext(r.Context(), "settings saved")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, settingsResponse{Settings: toSettingsDTO(settings)})
}

func (h *SettingsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID, ok := UserIDFromContext(r.Context())
	if !ok || strings.TrimSpace(userID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}
	reminderID, ok := ReminderIDFromContext(r.Context())
	if !ok || strings.TrimSpace(reminderID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReminderID)
		return
	}

	var asOf time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("as_of")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadAsOf)
			return
		}
		asOf = parsed
	}

	days, err := h.service.PreviewAdjustedDays(r.Context(), application.PreviewParams{
		UserID:     userID,
		ReminderID: reminderID,
		AsOf:       asOf,
	})
	if err != nil {
		h.log(r.Context(), "Preview", "user_id", userID, "reminder_id", reminderID).ErrorContext(r.Context(), "failed to preview reminder", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, previewResponse{
		ReminderID: reminderID,
		Days:       formatDays(days),
	})
}

type settingsRequest struct {
	Enabled            bool          `json:"enabled"`
	NotificationMethod string        `json:"notification_method"`
	Reminders          []reminderDTO `json:"reminders"`
}

func (r settingsRequest) toInput() application.SettingsInput {
	reminders := make([]application.ReminderInput, 0, len(r.Reminders))
	for _, reminder := range r.Reminders {
		reminders = append(reminders, reminder.toInput())
	}
	return application.SettingsInput{
		Enabled:            r.Enabled,
		NotificationMethod: r.NotificationMethod,
		Reminders:          reminders,
	}
}

type settingsResponse struct {
	Settings settingsDTO `json:"settings"`
}

type settingsDTO struct {
	UserID             string        `json:"user_id"`
	Enabled            bool          `json:"enabled"`
	NotificationMethod string        `json:"notification_method"`
	Reminders          []reminderDTO `json:"reminders"`
	UpdatedAt          string        `json:"updated_at"`
}

type reminderDTO struct {
	ID      string   `json:"id,omitempty"`
	Time    string   `json:"time"`
	Days    []string `json:"days"`
	Enabled bool     `json:"enabled"`
	Message string   `json:"message,omitempty"`
	Rule    *ruleDTO `json:"rule,omitempty"`
}

func (r reminderDTO) toInput() application.ReminderInput {
	return application.ReminderInput{
		ID:      r.ID,
		Time:    r.Time,
		Days:    r.Days,
		Enabled: r.Enabled,
		Message: r.Message,
		Rule:    r.Rule.toInput(),
	}
}

type ruleDTO struct {
	Pattern       string   `json:"pattern"`
	Intensity     string   `json:"intensity,omitempty"`
	WeekA         []string `json:"week_a,omitempty"`
	WeekB         []string `json:"week_b,omitempty"`
	StartDate     string   `json:"start_date,omitempty"`
	Rate          float64  `json:"rate,omitempty"`
	BaseFrequency int      `json:"base_frequency,omitempty"`
	ActiveDays    int      `json:"active_days,omitempty"`
	RestDays      int      `json:"rest_days,omitempty"`
}

func (r *ruleDTO) toInput() *application.RuleInput {
	if r == nil {
		return nil
	}
	return &application.RuleInput{
		Pattern:       r.Pattern,
		Intensity:     r.Intensity,
		WeekA:         r.WeekA,
		WeekB:         r.WeekB,
		StartDate:     r.StartDate,
		Rate:          r.Rate,
		BaseFrequency: r.BaseFrequency,
		ActiveDays:    r.ActiveDays,
		RestDays:      r.RestDays,
	}
}

type previewResponse struct {
	ReminderID string   `json:"reminder_id"`
	Days       []string `json:"days"`
}

func toSettingsDTO(settings persistence.ReminderSettings) settingsDTO {
	reminders := make([]reminderDTO, 0, len(settings.Reminders))
	for _, reminder := range settings.Reminders {
		reminders = append(reminders, toReminderDTO(reminder))
	}
	return settingsDTO{
		UserID:             settings.UserID,
		Enabled:            settings.Enabled,
		NotificationMethod: settings.NotificationMethod,
		Reminders:          reminders,
		UpdatedAt:          settings.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toReminderDTO(reminder recurrence.Reminder) reminderDTO {
	return reminderDTO{
		ID:      reminder.ID,
		Time:    reminder.Time,
		Days:    formatDays(reminder.Days),
		Enabled: reminder.Enabled,
		Message: reminder.Message,
		Rule:    toRuleDTO(reminder.Rule),
	}
}

func toRuleDTO(rule *recurrence.ScheduleRule) *ruleDTO {
	if rule == nil {
		return nil
	}
	dto := &ruleDTO{Pattern: rule.Pattern.String()}
	if rule.Intensity != recurrence.IntensityUnspecified {
		dto.Intensity = rule.Intensity.String()
	}
	if rule.Alternating != nil {
		dto.WeekA = formatDays(rule.Alternating.WeekA)
		dto.WeekB = formatDays(rule.Alternating.WeekB)
	}
	if rule.Progressive != nil {
		if !rule.Progressive.StartDate.IsZero() {
			dto.StartDate = rule.Progressive.StartDate.UTC().Format("2006-01-02")
		}
		dto.Rate = rule.Progressive.Rate
		dto.BaseFrequency = rule.Progressive.BaseFrequency
	}
	if rule.Cyclic != nil {
		dto.ActiveDays = rule.Cyclic.ActiveDays
		dto.RestDays = rule.Cyclic.RestDays
	}
	return dto
}

func formatDays(days []time.Weekday) []string {
	if len(days) == 0 {
		return nil
	}
	out := make([]string, 0, len(days))
	for _, day := range days {
		out = append(out, recurrence.FormatWeekday(day))
	}
	return out
}
