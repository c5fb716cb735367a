// Package handlers contains the HTTP handlers for the flood alert API.
//
// Handlers decode and validate requests, call a narrow service interface
// and write JSON through the core response helpers. Every handler exposes
// RegisterRoutes so cmd/api can mount it under /v1.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"floodwatch/internal/alerts"
	"floodwatch/internal/core"
	"floodwatch/internal/types"
)

// AlertChecker runs an on-demand check for one user.
type AlertChecker interface {
	Check(ctx context.Context, req alerts.CheckRequest) (*alerts.CheckResult, error)
}

// CheckAlertsRequest is the body of POST /alerts/check. Omitted
// minRiskLevel keeps the user's stored threshold; omitted sendEmail means
// true.
type CheckAlertsRequest struct {
	UserID       string `json:"userId" validate:"required,userid"`
	MinRiskLevel *int   `json:"minRiskLevel,omitempty" validate:"omitempty,min=0,max=3"`
	SendEmail    *bool  `json:"sendEmail,omitempty"`
}

// AnalysisSummary is the analysis part of a check response.
type AnalysisSummary struct {
	UserID            string                  `json:"userId"`
	User              types.UserSummary       `json:"user"`
	Thresholds        types.AlertThresholds   `json:"thresholds"`
	TotalLocations    int                     `json:"totalLocations"`
	AffectedLocations int                     `json:"affectedLocations"`
	Events            []types.TriggeringEvent `json:"events"`
}

// CheckAlertsResponse reports the analysis and one outcome per notified
// location. Per-location failures are carried inline in Alerts.
type CheckAlertsResponse struct {
	Success  bool                    `json:"success"`
	Message  string                  `json:"message"`
	Analysis AnalysisSummary         `json:"analysis"`
	Alerts   []types.DispatchOutcome `json:"alerts"`
}

// AlertsHandler serves on-demand checks.
type AlertsHandler struct {
	checker   AlertChecker
	validator *core.Validator
	logger    *slog.Logger
}

// NewAlertsHandler creates an AlertsHandler.
func NewAlertsHandler(checker AlertChecker, v *core.Validator, logger *slog.Logger) *AlertsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertsHandler{checker: checker, validator: v, logger: logger}
}

// RegisterRoutes mounts the alert routes.
func (h *AlertsHandler) RegisterRoutes(r chi.Router) {
	r.Post("/alerts/check", h.Check)
}

// Check handles POST /alerts/check.
func (h *AlertsHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckAlertsRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	sendEmail := true
	if req.SendEmail != nil {
		sendEmail = *req.SendEmail
	}

	h.logger.InfoContext(r.Context(), "checking user locations", "user_id", req.UserID)
	result, err := h.checker.Check(r.Context(), alerts.CheckRequest{
		UserID:       req.UserID,
		MinRiskLevel: req.MinRiskLevel,
		SendEmail:    sendEmail,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	a := result.Analysis
	resp := CheckAlertsResponse{
		Success: true,
		Analysis: AnalysisSummary{
			UserID:            a.UserID,
			User:              a.User,
			Thresholds:        a.Thresholds,
			TotalLocations:    a.TotalLocations,
			AffectedLocations: a.AffectedLocations,
			Events:            a.Alerts,
		},
		Alerts: result.Outcomes,
	}
	if resp.Alerts == nil {
		resp.Alerts = []types.DispatchOutcome{}
	}
	if a.AffectedLocations == 0 {
		resp.Message = "Tất cả địa điểm của bạn đều an toàn"
	} else {
		resp.Message = fmt.Sprintf("Đã tạo %d cảnh báo cá nhân hóa", len(resp.Alerts))
	}
	core.JSON(w, r, http.StatusOK, resp)
}
