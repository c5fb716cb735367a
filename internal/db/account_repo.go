package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"floodwatch/internal/types"
)

// AccountRepository reads the authoritative account records.
type AccountRepository struct {
	db DBTX
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetIdentity returns the display name and email of an enabled account.
// Unknown and disabled accounts yield ErrCodeNotFoundUser.
func (r *AccountRepository) GetIdentity(ctx context.Context, userID string) (types.Identity, error) {
	var id types.Identity
	err := r.db.QueryRow(ctx,
		`SELECT display_name, email FROM accounts WHERE user_id = $1 AND NOT disabled`,
		userID,
	).Scan(&id.DisplayName, &id.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Identity{}, types.NewAppError(types.ErrCodeNotFoundUser, "account not found", nil)
		}
		return types.Identity{}, types.NewAppError(types.ErrCodeUpstreamIdentity, "failed to load account", err)
	}
	return id, nil
}
