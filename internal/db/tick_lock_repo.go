package db

import (
	"context"
	"time"

	"floodwatch/internal/types"
)

// TickLockRepository is the PostgreSQL tick guard used when several API
// replicas share a database but no Redis is configured.
type TickLockRepository struct {
	db  DBTX
	now func() time.Time
}

// NewTickLockRepository creates a new TickLockRepository.
func NewTickLockRepository(db DBTX) *TickLockRepository {
	return &TickLockRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Acquire claims key for ttl. It returns false while another owner holds an
// unexpired claim.
//
// Expiry is computed in Go rather than with interval arithmetic in SQL so
// durations like "15m0s" never reach the database.
func (r *TickLockRepository) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	now := r.now()
	tag, err := r.db.Exec(ctx,
		`INSERT INTO tick_locks (id, owner, locked_at, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		   SET owner = EXCLUDED.owner,
		       locked_at = EXCLUDED.locked_at,
		       expires_at = EXCLUDED.expires_at
		   WHERE tick_locks.expires_at < $3`,
		key, owner, now, now.Add(ttl),
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to acquire tick lock", err)
	}
	return tag.RowsAffected() > 0, nil
}
