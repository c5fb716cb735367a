package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"floodwatch/internal/core"
	"floodwatch/internal/types"
)

// LocationLister reads a user's active locations.
type LocationLister interface {
	ListLocations(ctx context.Context, userID string) ([]types.Location, error)
}

// LocationsResponse is the body of GET /users/{userId}/locations.
type LocationsResponse struct {
	UserID    string           `json:"userId"`
	Count     int              `json:"count"`
	Locations []types.Location `json:"locations"`
}

// LocationsHandler lists monitored locations.
type LocationsHandler struct {
	locations LocationLister
	validator *core.Validator
}

// NewLocationsHandler creates a LocationsHandler.
func NewLocationsHandler(locations LocationLister, v *core.Validator) *LocationsHandler {
	return &LocationsHandler{locations: locations, validator: v}
}

// RegisterRoutes mounts the location routes.
func (h *LocationsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users/{userId}/locations", h.List)
}

// List handles GET /users/{userId}/locations.
func (h *LocationsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r, h.validator)
	if !ok {
		return
	}
	locs, err := h.locations.ListLocations(r.Context(), userID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if locs == nil {
		locs = []types.Location{}
	}
	core.OK(w, r, LocationsResponse{UserID: userID, Count: len(locs), Locations: locs})
}

// userIDParam reads and validates the {userId} path parameter, writing a
// 400 when it is unusable.
func userIDParam(w http.ResponseWriter, r *http.Request, v *core.Validator) (string, bool) {
	userID := chi.URLParam(r, "userId")
	if err := v.ValidateVar(userID, "userid"); err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "Thiếu userId", err))
		return "", false
	}
	return userID, true
}
