package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/wellness-reminders/internal/application"
)

var errMissingStartUser = errors.New("a user_id is required to start the scheduler")

// reminderEngine is the lifecycle surface of the polling scheduler.
type reminderEngine interface {
	Start(userID string) error
	Stop()
	Running() bool
	ActiveUser() string
}

type SchedulerHandler struct {
	engine    reminderEngine
	responder responder
	logger    *slog.Logger
}

func NewSchedulerHandler(engine reminderEngine, logger *slog.Logger) *SchedulerHandler {
	base := defaultLogger(logger)
	return &SchedulerHandler{engine: engine, responder: newResponder(base), logger: base}
}

func (h *SchedulerHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SchedulerHandler", operation, attrs...)
}

func (h *SchedulerHandler) Start(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.engine == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req startSchedulerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Start", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode start request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingStartUser)
		return
	}

	logger := h.log(r.Context(), "Start", "user_id", userID)

	if err := h.engine.Start(userID); err != nil {
		logger.ErrorContext(r.Context(), "failed to start scheduler", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, err)
		return
	}

	logger.InfoContext(r.Context(), "scheduler started")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, schedulerStatusResponse{
		Running: true,
		UserID:  userID,
	})
}

func (h *SchedulerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.engine == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.engine.Stop()
	h.log(r.Context(), "Stop").InfoContext(r.Context(), "scheduler stopped")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SchedulerHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.engine == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, schedulerStatusResponse{
		Running: h.engine.Running(),
		UserID:  h.engine.ActiveUser(),
	})
}

type startSchedulerRequest struct {
	UserID string `json:"user_id"`
}

type schedulerStatusResponse struct {
	Running bool   `json:"running"`
	UserID  string `json:"user_id,omitempty"`
}
