package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"floodwatch/internal/types"
)

// TelegramUserRepository provides data access for chats known to the bot.
type TelegramUserRepository struct {
	db DBTX
}

// NewTelegramUserRepository creates a new TelegramUserRepository.
func NewTelegramUserRepository(db DBTX) *TelegramUserRepository {
	return &TelegramUserRepository{db: db}
}

const telegramUserColumns = `chat_id, username, first_name, last_name, email, user_id, is_active, updated_at`

func scanTelegramUser(row pgx.Row) (*types.TelegramUser, error) {
	var (
		u      types.TelegramUser
		userID *string
	)
	if err := row.Scan(
		&u.ChatID,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&userID,
		&u.IsActive,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if userID != nil {
		u.UserID = *userID
	}
	return &u, nil
}

// FindActiveByEmail returns the most recently updated active chat registered
// with email, or nil when there is none.
func (r *TelegramUserRepository) FindActiveByEmail(ctx context.Context, email string) (*types.TelegramUser, error) {
	if email == "" {
		return nil, nil
	}
	u, err := scanTelegramUser(r.db.QueryRow(ctx,
		`SELECT `+telegramUserColumns+`
		 FROM telegram_users
		 WHERE lower(email) = lower($1) AND is_active
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		email,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to find telegram user", err)
	}
	return u, nil
}

// FindByChatID returns the chat record, or nil when the chat is unknown.
func (r *TelegramUserRepository) FindByChatID(ctx context.Context, chatID string) (*types.TelegramUser, error) {
	u, err := scanTelegramUser(r.db.QueryRow(ctx,
		`SELECT `+telegramUserColumns+` FROM telegram_users WHERE chat_id = $1`,
		chatID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load telegram user", err)
	}
	return u, nil
}

// Upsert registers or reactivates a chat. Empty email and user id never
// overwrite values stored by an earlier link.
func (r *TelegramUserRepository) Upsert(ctx context.Context, u *types.TelegramUser) error {
	var userID *string
	if u.UserID != "" {
		userID = &u.UserID
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO telegram_users (chat_id, username, first_name, last_name, email, user_id, is_active, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		 ON CONFLICT (chat_id) DO UPDATE SET
		   username   = EXCLUDED.username,
		   first_name = EXCLUDED.first_name,
		   last_name  = EXCLUDED.last_name,
		   email      = COALESCE(NULLIF(EXCLUDED.email, ''), telegram_users.email),
		   user_id    = COALESCE(EXCLUDED.user_id, telegram_users.user_id),
		   is_active  = EXCLUDED.is_active,
		   updated_at = NOW()`,
		u.ChatID, u.Username, u.FirstName, u.LastName, u.Email, userID, u.IsActive,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to save telegram user", err)
	}
	return nil
}

// Deactivate stops alerts to a chat without forgetting it.
func (r *TelegramUserRepository) Deactivate(ctx context.Context, chatID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE telegram_users SET is_active = FALSE, updated_at = NOW() WHERE chat_id = $1`,
		chatID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to deactivate telegram user", err)
	}
	return nil
}

// Unlink detaches a chat from its account and deactivates it. The record is
// kept so the chat can link again.
func (r *TelegramUserRepository) Unlink(ctx context.Context, chatID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE telegram_users SET user_id = NULL, is_active = FALSE, updated_at = NOW() WHERE chat_id = $1`,
		chatID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to unlink telegram user", err)
	}
	return nil
}
