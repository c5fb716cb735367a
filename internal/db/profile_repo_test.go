package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"floodwatch/internal/types"
)

func TestProfileRepository_GetProfile_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	row := &mockRow{values: []any{"u1", "Minh", "minh@example.com", "12345", true}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"u1"}).Return(row)

	p, err := repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Minh", p.Name)
	assert.Equal(t, "minh@example.com", p.Email)
	assert.Equal(t, "12345", p.TelegramChatID)
	assert.True(t, p.TelegramNotifications)
	db.AssertExpectations(t)
}

func TestProfileRepository_GetProfile_NullChatID(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	row := &mockRow{values: []any{"u1", "Minh", "", nil, false}}
	db.On("QueryRow", ctx, mock.Anything, []any{"u1"}).Return(row)

	p, err := repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, p.TelegramChatID)
	assert.False(t, p.TelegramNotifications)
}

func TestProfileRepository_GetProfile_NotFoundIsNil(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.Anything, []any{"ghost"}).Return(&mockRow{scanErr: pgx.ErrNoRows})

	p, err := repo.GetProfile(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestProfileRepository_GetProfile_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.Anything, []any{"u1"}).Return(&mockRow{scanErr: errors.New("connection reset")})

	_, err := repo.GetProfile(ctx, "u1")
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestProfileRepository_IsTelegramEnabled(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		row     *mockRow
		want    bool
		wantErr bool
	}{
		{name: "enabled", row: &mockRow{values: []any{true}}, want: true},
		{name: "disabled", row: &mockRow{values: []any{false}}, want: false},
		{name: "no profile", row: &mockRow{scanErr: pgx.ErrNoRows}, want: false},
		{name: "db error", row: &mockRow{scanErr: errors.New("boom")}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := new(mockDBTX)
			repo := NewProfileRepository(db)
			db.On("QueryRow", ctx, mock.Anything, []any{"u1"}).Return(tc.row)

			got, err := repo.IsTelegramEnabled(ctx, "u1")
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestProfileRepository_GetTelegramChatID(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.Anything, []any{"u1"}).Return(&mockRow{values: []any{"777"}}).Once()
	db.On("QueryRow", ctx, mock.Anything, []any{"u2"}).Return(&mockRow{values: []any{nil}}).Once()
	db.On("QueryRow", ctx, mock.Anything, []any{"u3"}).Return(&mockRow{scanErr: pgx.ErrNoRows}).Once()

	id, err := repo.GetTelegramChatID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "777", id)

	id, err = repo.GetTelegramChatID(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, id)

	id, err = repo.GetTelegramChatID(ctx, "u3")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestProfileRepository_SetTelegramChatID(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.Anything, []any{"u1", "777"}).Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	require.NoError(t, repo.SetTelegramChatID(ctx, "u1", "777"))
	db.AssertExpectations(t)
}

func TestProfileRepository_SetTelegramChatID_NoProfile(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.Anything, []any{"ghost", "777"}).Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := repo.SetTelegramChatID(ctx, "ghost", "777")
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeNotFoundProfile, appErr.Code)
}

func TestProfileRepository_ClearTelegramChatID(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.Anything, []any{"u1"}).Return(&mockRow{values: []any{"777"}}).Once()
	db.On("QueryRow", ctx, mock.Anything, []any{"u2"}).Return(&mockRow{scanErr: pgx.ErrNoRows}).Once()

	prev, err := repo.ClearTelegramChatID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "777", prev)

	prev, err = repo.ClearTelegramChatID(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, prev)
}

func TestAccountRepository_GetIdentity(t *testing.T) {
	db := new(mockDBTX)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.Anything, []any{"u1"}).Return(&mockRow{values: []any{"Trần Minh", "minh@example.com"}}).Once()
	db.On("QueryRow", ctx, mock.Anything, []any{"ghost"}).Return(&mockRow{scanErr: pgx.ErrNoRows}).Once()
	db.On("QueryRow", ctx, mock.Anything, []any{"u2"}).Return(&mockRow{scanErr: errors.New("timeout")}).Once()

	id, err := repo.GetIdentity(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, types.Identity{DisplayName: "Trần Minh", Email: "minh@example.com"}, id)

	_, err = repo.GetIdentity(ctx, "ghost")
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeNotFoundUser, appErr.Code)

	_, err = repo.GetIdentity(ctx, "u2")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamIdentity, appErr.Code)
}
