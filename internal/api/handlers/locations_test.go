package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floodwatch/internal/types"
)

type mockLocations struct {
	locs   []types.Location
	err    error
	userID string
}

func (m *mockLocations) ListLocations(_ context.Context, userID string) ([]types.Location, error) {
	m.userID = userID
	return m.locs, m.err
}

func TestLocationsHandler_List(t *testing.T) {
	t.Run("returns locations with count", func(t *testing.T) {
		m := &mockLocations{locs: []types.Location{
			{ID: "l1", Name: "Nhà", Coords: &types.Coordinates{Lat: 16.06, Lon: 108.22}, AlertRadius: 1000},
			{ID: "l2", Name: "Trường"},
		}}
		h := NewLocationsHandler(m, testValidator())

		w := serve(t, h.RegisterRoutes, http.MethodGet, "/users/u1/locations", nil)

		require.Equal(t, http.StatusOK, w.Code)
		got := decodeData[LocationsResponse](t, w)
		assert.Equal(t, "u1", m.userID)
		assert.Equal(t, 2, got.Count)
		assert.Equal(t, "Nhà", got.Locations[0].Name)
	})

	t.Run("no locations is an empty list", func(t *testing.T) {
		h := NewLocationsHandler(&mockLocations{}, testValidator())
		w := serve(t, h.RegisterRoutes, http.MethodGet, "/users/u1/locations", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"locations":[]`)
	})

	t.Run("store failure is 500", func(t *testing.T) {
		m := &mockLocations{err: types.NewAppError(types.ErrCodeInternalDB, "failed to list locations", errors.New("conn reset"))}
		h := NewLocationsHandler(m, testValidator())

		w := serve(t, h.RegisterRoutes, http.MethodGet, "/users/u1/locations", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "conn reset")
	})
}
