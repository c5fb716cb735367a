package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"floodwatch/internal/types"
)

// ProfileRepository provides data access for the profiles table.
type ProfileRepository struct {
	db DBTX
}

// NewProfileRepository creates a new ProfileRepository backed by the given
// database connection (pool or transaction).
func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetProfile returns the profile for userID, or nil with a nil error when
// the user has none.
func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (*types.Profile, error) {
	var (
		p      types.Profile
		chatID *string
	)
	err := r.db.QueryRow(ctx,
		`SELECT user_id, name, email, telegram_chat_id,
		        COALESCE((notification_settings->>'telegram')::boolean, false)
		 FROM profiles
		 WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.Name, &p.Email, &chatID, &p.TelegramNotifications)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load profile", err)
	}
	if chatID != nil {
		p.TelegramChatID = *chatID
	}
	return &p, nil
}

// IsTelegramEnabled reports whether the user switched on Telegram alerts.
// A missing profile or setting means disabled.
func (r *ProfileRepository) IsTelegramEnabled(ctx context.Context, userID string) (bool, error) {
	var enabled bool
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE((notification_settings->>'telegram')::boolean, false)
		 FROM profiles
		 WHERE user_id = $1`,
		userID,
	).Scan(&enabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to read telegram preference", err)
	}
	return enabled, nil
}

// GetTelegramChatID returns the linked chat id, or "" when none is stored.
func (r *ProfileRepository) GetTelegramChatID(ctx context.Context, userID string) (string, error) {
	var chatID *string
	err := r.db.QueryRow(ctx,
		`SELECT telegram_chat_id FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&chatID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", types.NewAppError(types.ErrCodeInternalDB, "failed to read telegram chat id", err)
	}
	if chatID == nil {
		return "", nil
	}
	return *chatID, nil
}

// SetTelegramChatID links chatID to the profile. Returns ErrCodeNotFoundProfile
// when the user has no profile.
func (r *ProfileRepository) SetTelegramChatID(ctx context.Context, userID, chatID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE profiles SET telegram_chat_id = $2, updated_at = NOW() WHERE user_id = $1`,
		userID, chatID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to save telegram chat id", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundProfile, "profile not found", nil)
	}
	return nil
}

// ClearTelegramChatID removes the link and returns the chat id it held, or
// "" when the profile was not linked.
func (r *ProfileRepository) ClearTelegramChatID(ctx context.Context, userID string) (string, error) {
	var previous *string
	err := r.db.QueryRow(ctx,
		`UPDATE profiles p
		 SET telegram_chat_id = NULL, updated_at = NOW()
		 FROM (SELECT user_id, telegram_chat_id FROM profiles WHERE user_id = $1 FOR UPDATE) old
		 WHERE p.user_id = old.user_id
		 RETURNING old.telegram_chat_id`,
		userID,
	).Scan(&previous)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", types.NewAppError(types.ErrCodeInternalDB, "failed to clear telegram chat id", err)
	}
	if previous == nil {
		return "", nil
	}
	return *previous, nil
}
