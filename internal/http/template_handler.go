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
)

type templateService interface {
	CreateTemplate(ctx context.Context, params application.CreateTemplateParams) (persistence.ReminderTemplate, error)
	GetTemplate(ctx context.Context, viewer, id string) (persistence.ReminderTemplate, error)
	ListTemplates(ctx context.Context, params application.ListTemplatesParams) ([]persistence.ReminderTemplate, error)
	LikeTemplate(ctx context.Context, viewer, id string) error
	DeleteTemplate(ctx context.Context, viewer, id string) error
	ApplyTemplate(ctx context.Context, params application.ApplyTemplateParams) (persistence.ReminderSettings, error)
}

type TemplateHandler struct {
	service   templateService
	waker     EngineWaker
	responder responder
	logger    *slog.Logger
}

func NewTemplateHandler(service templateService, waker EngineWaker, logger *slog.Logger) *TemplateHandler {
	base := defaultLogger(logger)
	return &TemplateHandler{service: service, waker: waker, responder: newResponder(base), logger: base}
}

func (h *TemplateHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TemplateHandler", operation, attrs...)
}

// actingUser resolves the caller identity from the X-User-ID header.
func actingUser(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-ID"))
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	author := actingUser(r)
	if author == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingActingUser)
		return
	}

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "author", author, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode template request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "author", author)

	template, err := h.service.CreateTemplate(r.Context(), application.CreateTemplateParams{
		Author: author,
		Input:  req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "template creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("template_id", template.ID).InfoContext(r.Context(), "template created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, templateResponse{Template: toTemplateDTO(template)})
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	viewer := actingUser(r)
	authoredOnly := r.URL.Query().Get("mine") == "true"

	templates, err := h.service.ListTemplates(r.Context(), application.ListTemplatesParams{
		Viewer:       viewer,
		AuthoredOnly: authoredOnly,
	})
	if err != nil {
		h.log(r.Context(), "List", "viewer", viewer).ErrorContext(r.Context(), "template listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listTemplatesResponse{Templates: toTemplateDTOs(templates)})
}

func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	templateID, ok := TemplateIDFromContext(r.Context())
	if !ok || strings.TrimSpace(templateID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTemplateID)
		return
	}

	template, err := h.service.GetTemplate(r.Context(), actingUser(r), templateID)
	if err != nil {
		h.log(r.Context(), "Get", "template_id", templateID).ErrorContext(r.Context(), "template lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, templateResponse{Template: toTemplateDTO(template)})
}

func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	templateID, ok := TemplateIDFromContext(r.Context())
	if !ok || strings.TrimSpace(templateID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTemplateID)
		return
	}

	viewer := actingUser(r)
	if viewer == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingActingUser)
		return
	}

	if err := h.service.DeleteTemplate(r.Context(), viewer, templateID); err != nil {
		h.log(r.Context(), "Delete", "template_id", templateID, "viewer", viewer).ErrorContext(r.Context(), "template deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *TemplateHandler) Like(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	templateID, ok := TemplateIDFromContext(r.Context())
	if !ok || strings.TrimSpace(templateID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTemplateID)
		return
	}

	if err := h.service.LikeTemplate(r.Context(), actingUser(r), templateID); err != nil {
		h.log(r.Context(), "Like", "template_id", templateID).ErrorContext(r.Context(), "template like failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *TemplateHandler) Apply(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	templateID, ok := TemplateIDFromContext(r.Context())
	if !ok || strings.TrimSpace(templateID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTemplateID)
		return
	}

	userID := actingUser(r)
	if userID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingActingUser)
		return
	}

	logger := h.log(r.Context(), "Apply", "template_id", templateID, "user_id", userID)

	settings, err := h.service.ApplyTemplate(r.Context(), application.ApplyTemplateParams{
		UserID:     userID,
		TemplateID: templateID,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "template apply failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if h.waker != nil {
		h.waker.Notify()
	}

	logger.With("reminder_count", len(settings.Reminders)).InfoContext(r.Context(), "template applied")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, settingsResponse{Settings: toSettingsDTO(settings)})
}

type templateRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Public      bool              `json:"public"`
	Items       []templateItemDTO `json:"items"`
}

func (r templateRequest) toInput() application.TemplateInput {
	items := make([]application.TemplateItemInput, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, application.TemplateItemInput{
			Time:    item.Time,
			Days:    item.Days,
			Message: item.Message,
			Rule:    item.Rule.toInput(),
		})
	}
	return application.TemplateInput{
		Name:        r.Name,
		Description: r.Description,
		Public:      r.Public,
		Items:       items,
	}
}

type templateItemDTO struct {
	Time    string   `json:"time"`
	Days    []string `json:"days"`
	Message string   `json:"message,omitempty"`
	Rule    *ruleDTO `json:"rule,omitempty"`
}

type templateResponse struct {
	Template templateDTO `json:"template"`
}

type listTemplatesResponse struct {
	Templates []templateDTO `json:"templates"`
}

type templateDTO struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Author      string            `json:"author"`
	Public      bool              `json:"public"`
	Likes       int               `json:"likes"`
	Downloads   int               `json:"downloads"`
	Items       []templateItemDTO `json:"items"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

func toTemplateDTO(template persistence.ReminderTemplate) templateDTO {
	items := make([]templateItemDTO, 0, len(template.Items))
	for _, item := range template.Items {
		items = append(items, templateItemDTO{
			Time:    item.Time,
			Days:    formatDays(item.Days),
			Message: item.Message,
			Rule:    toRuleDTO(item.Rule),
		})
	}
	return templateDTO{
		ID:          template.ID,
		Name:        template.Name,
		Description: template.Description,
		Author:      template.Author,
		Public:      template.Public,
		Likes:       template.Likes,
		Downloads:   template.Downloads,
		Items:       items,
		CreatedAt:   template.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   template.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toTemplateDTOs(templates []persistence.ReminderTemplate) []templateDTO {
	if len(templates) == 0 {
		return nil
	}
	out := make([]templateDTO, 0, len(templates))
	for _, template := range templates {
		out = append(out, toTemplateDTO(template))
	}
	return out
}
