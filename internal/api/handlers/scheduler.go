package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"floodwatch/internal/core"
	"floodwatch/internal/scheduler"
	"floodwatch/internal/types"
)

// SchedulerControl is the slice of the scheduler the API exposes.
type SchedulerControl interface {
	Status() scheduler.Status
	RestartUser(ctx context.Context, userID string) (bool, error)
}

// RestartResponse reports the outcome of a timer restart.
type RestartResponse struct {
	UserID    string `json:"userId"`
	Scheduled bool   `json:"scheduled"`
}

// SchedulerHandler reports on and controls the recurring checks.
type SchedulerHandler struct {
	sched     SchedulerControl
	validator *core.Validator
	logger    *slog.Logger
}

// NewSchedulerHandler creates a SchedulerHandler.
func NewSchedulerHandler(sched SchedulerControl, v *core.Validator, logger *slog.Logger) *SchedulerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SchedulerHandler{sched: sched, validator: v, logger: logger}
}

// RegisterRoutes mounts the scheduler routes.
func (h *SchedulerHandler) RegisterRoutes(r chi.Router) {
	r.Route("/scheduler", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Post("/users/{userId}/restart", h.Restart)
	})
}

// Status handles GET /scheduler/status.
func (h *SchedulerHandler) Status(w http.ResponseWriter, r *http.Request) {
	core.OK(w, r, h.sched.Status())
}

// Restart handles POST /scheduler/users/{userId}/restart. Restarting while
// the scheduler is stopped is a conflict.
func (h *SchedulerHandler) Restart(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r, h.validator)
	if !ok {
		return
	}
	if !h.sched.Status().IsRunning {
		core.Error(w, r, types.NewAppError(types.ErrCodeConflictSchedulerStopped, "scheduler is not running", nil))
		return
	}
	scheduled, err := h.sched.RestartUser(r.Context(), userID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "user timer restarted", "user_id", userID, "scheduled", scheduled)
	core.OK(w, r, RestartResponse{UserID: userID, Scheduled: scheduled})
}
