package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"floodwatch/internal/core"
	"floodwatch/internal/rainfall"
	"floodwatch/internal/types"
)

// RainfallRequest is the body of POST /rainfall/analyze. Hourly is capped
// at ten days of hourly entries.
type RainfallRequest struct {
	Hourly   []rainfall.Entry `json:"hourly" validate:"max=240,dive"`
	Location *RainfallPlace   `json:"location,omitempty"`
}

// RainfallPlace names the forecast point.
type RainfallPlace struct {
	Name string   `json:"name"`
	Lat  *float64 `json:"lat" validate:"omitempty,latitude"`
	Lon  *float64 `json:"lon" validate:"omitempty,longitude"`
}

// RainfallHandler classifies forecast rainfall.
type RainfallHandler struct {
	validator *core.Validator
	clock     types.Clock
}

// NewRainfallHandler creates a RainfallHandler. A nil clock uses wall time.
func NewRainfallHandler(v *core.Validator, clock types.Clock) *RainfallHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &RainfallHandler{validator: v, clock: clock}
}

// RegisterRoutes mounts the rainfall routes.
func (h *RainfallHandler) RegisterRoutes(r chi.Router) {
	r.Post("/rainfall/analyze", h.Analyze)
}

// Analyze handles POST /rainfall/analyze.
func (h *RainfallHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req RainfallRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if len(req.Hourly) == 0 {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "Không có dữ liệu dự báo", nil))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	var place rainfall.Place
	if req.Location != nil {
		place = rainfall.Place{Name: req.Location.Name, Lat: req.Location.Lat, Lon: req.Location.Lon}
	}
	analysis, _ := rainfall.Analyze(req.Hourly, place, h.clock.Now())
	core.OK(w, r, analysis)
}
