package db

import (
	"context"
	"time"

	"floodwatch/internal/types"
)

// LocationRepository provides data access for the locations table.
type LocationRepository struct {
	db DBTX
}

// NewLocationRepository creates a new LocationRepository.
func NewLocationRepository(db DBTX) *LocationRepository {
	return &LocationRepository{db: db}
}

// ListLocations returns the user's non-deleted locations in creation order.
// Rows missing either coordinate come back with nil Coords.
func (r *LocationRepository) ListLocations(ctx context.Context, userID string) ([]types.Location, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, name, address, type, lat, lon, alert_radius,
		        status, priority, deleted, last_checked
		 FROM locations
		 WHERE user_id = $1 AND NOT deleted
		 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list locations", err)
	}
	defer rows.Close()

	var out []types.Location
	for rows.Next() {
		var (
			loc      types.Location
			lat, lon *float64
		)
		if err := rows.Scan(
			&loc.ID,
			&loc.UserID,
			&loc.Name,
			&loc.Address,
			&loc.Type,
			&lat,
			&lon,
			&loc.AlertRadius,
			&loc.Status,
			&loc.Priority,
			&loc.Deleted,
			&loc.LastChecked,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan location", err)
		}
		if lat != nil && lon != nil {
			loc.Coords = &types.Coordinates{Lat: *lat, Lon: *lon}
		}
		if loc.AlertRadius <= 0 {
			loc.AlertRadius = types.DefaultAlertRadiusM
		}
		out = append(out, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate locations", err)
	}
	return out, nil
}

// UpdateLocationStatus writes the status and check time after an alert.
// A missing location is not an error.
func (r *LocationRepository) UpdateLocationStatus(ctx context.Context, userID, locationID string, status types.LocationStatus, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE locations SET status = $3, last_checked = $4 WHERE user_id = $1 AND id = $2`,
		userID, locationID, string(status), at.UTC(),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update location status", err)
	}
	return nil
}
