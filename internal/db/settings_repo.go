package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"floodwatch/internal/types"
)

// SettingsRepository provides data access for the alert_settings table.
type SettingsRepository struct {
	db DBTX
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(db DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

const settingsColumns = `user_id, enabled, check_interval, email_enabled,
	water_level_threshold, risk_level_threshold, last_checked`

func scanSettings(row pgx.Row) (*types.AlertSettings, error) {
	var s types.AlertSettings
	err := row.Scan(
		&s.UserID,
		&s.Enabled,
		&s.CheckInterval,
		&s.EmailEnabled,
		&s.WaterLevelThreshold,
		&s.RiskLevelThreshold,
		&s.LastChecked,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetAlertSettings returns the user's settings, or nil with a nil error when
// none are stored.
func (r *SettingsRepository) GetAlertSettings(ctx context.Context, userID string) (*types.AlertSettings, error) {
	s, err := scanSettings(r.db.QueryRow(ctx,
		`SELECT `+settingsColumns+` FROM alert_settings WHERE user_id = $1`,
		userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load alert settings", err)
	}
	return s, nil
}

// ListEnabledSettings returns every user with automatic checks switched on.
func (r *SettingsRepository) ListEnabledSettings(ctx context.Context) ([]types.AlertSettings, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+settingsColumns+` FROM alert_settings WHERE enabled ORDER BY user_id`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list alert settings", err)
	}
	defer rows.Close()

	var out []types.AlertSettings
	for rows.Next() {
		s, err := scanSettings(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan alert settings", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate alert settings", err)
	}
	return out, nil
}

// UpdateLastChecked stamps the start of a check cycle. Users without a
// settings row get one, disabled.
func (r *SettingsRepository) UpdateLastChecked(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO alert_settings (user_id, last_checked)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET last_checked = EXCLUDED.last_checked`,
		userID, at.UTC(),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update last checked", err)
	}
	return nil
}
