package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTickLockRepository_Acquire(t *testing.T) {
	now := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		tag     pgconn.CommandTag
		err     error
		want    bool
		wantErr bool
	}{
		{name: "new lock", tag: pgconn.NewCommandTag("INSERT 0 1"), want: true},
		{name: "expired lock reclaimed", tag: pgconn.NewCommandTag("INSERT 0 1"), want: true},
		{name: "held by another replica", tag: pgconn.NewCommandTag("INSERT 0 0"), want: false},
		{name: "db error", tag: pgconn.CommandTag{}, err: errors.New("connection refused"), wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := new(mockDBTX)
			repo := NewTickLockRepository(db)
			repo.now = func() time.Time { return now }
			ctx := context.Background()

			db.On("Exec", ctx, mock.AnythingOfType("string"), []any{"tick:u1", "replica-a", now, now.Add(time.Minute)}).
				Return(tc.tag, tc.err)

			got, err := repo.Acquire(ctx, "tick:u1", "replica-a", time.Minute)
			if tc.wantErr {
				require.Error(t, err)
				assert.False(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			db.AssertExpectations(t)
		})
	}
}
