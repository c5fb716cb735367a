package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"floodwatch/internal/types"
)

func TestTelegramUserRepository_FindActiveByEmail(t *testing.T) {
	db := new(mockDBTX)
	repo := NewTelegramUserRepository(db)
	ctx := context.Background()
	updated := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	db.On("QueryRow", ctx, mock.Anything, []any{"minh@example.com"}).
		Return(&mockRow{values: []any{"777", "minhtran", "Minh", "Trần", "minh@example.com", nil, true, updated}})

	u, err := repo.FindActiveByEmail(ctx, "minh@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "777", u.ChatID)
	assert.Equal(t, "minhtran", u.Username)
	assert.Empty(t, u.UserID)
	assert.True(t, u.IsActive)
	assert.Equal(t, updated, u.UpdatedAt)
}

func TestTelegramUserRepository_FindActiveByEmail_EmptyEmailSkipsQuery(t *testing.T) {
	db := new(mockDBTX)
	repo := NewTelegramUserRepository(db)

	u, err := repo.FindActiveByEmail(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, u)
	db.AssertNotCalled(t, "QueryRow", mock.Anything, mock.Anything, mock.Anything)
}

func TestTelegramUserRepository_FindByChatID(t *testing.T) {
	db := new(mockDBTX)
	repo := NewTelegramUserRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.Anything, []any{"777"}).
		Return(&mockRow{values: []any{"777", "", "Minh", "", "", "u1", false, time.Time{}}}).Once()
	db.On("QueryRow", ctx, mock.Anything, []any{"888"}).Return(&mockRow{scanErr: pgx.ErrNoRows}).Once()

	u, err := repo.FindByChatID(ctx, "777")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
	assert.False(t, u.IsActive)

	u, err = repo.FindByChatID(ctx, "888")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestTelegramUserRepository_Upsert(t *testing.T) {
	db := new(mockDBTX)
	repo := NewTelegramUserRepository(db)
	ctx := context.Background()

	uid := "u1"
	db.On("Exec", ctx, mock.Anything, []any{"777", "minhtran", "Minh", "Trần", "minh@example.com", &uid, true}).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil).Once()
	db.On("Exec", ctx, mock.Anything, []any{"888", "", "Lan", "", "", (*string)(nil), true}).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil).Once()

	require.NoError(t, repo.Upsert(ctx, &types.TelegramUser{
		ChatID: "777", Username: "minhtran", FirstName: "Minh", LastName: "Trần",
		Email: "minh@example.com", UserID: "u1", IsActive: true,
	}))
	require.NoError(t, repo.Upsert(ctx, &types.TelegramUser{ChatID: "888", FirstName: "Lan", IsActive: true}))
	db.AssertExpectations(t)
}

func TestTelegramUserRepository_DeactivateAndUnlink(t *testing.T) {
	db := new(mockDBTX)
	repo := NewTelegramUserRepository(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool { return !containsUserID(sql) }), []any{"777"}).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil).Once()
	db.On("Exec", ctx, mock.MatchedBy(containsUserID), []any{"777"}).
		Return(pgconn.CommandTag{}, errors.New("down")).Once()

	require.NoError(t, repo.Deactivate(ctx, "777"))

	err := repo.Unlink(ctx, "777")
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
	db.AssertExpectations(t)
}

func containsUserID(sql string) bool {
	return strings.Contains(sql, "user_id")
}
