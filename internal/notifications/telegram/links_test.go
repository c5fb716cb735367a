package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floodwatch/internal/retry"
	"floodwatch/internal/types"
)

type fakeProfiles struct {
	enabled  bool
	chatID   string
	getErrs  []error
	getCalls int
	setErr   error
	saved    map[string]string
}

func (f *fakeProfiles) IsTelegramEnabled(context.Context, string) (bool, error) {
	return f.enabled, nil
}

func (f *fakeProfiles) GetTelegramChatID(context.Context, string) (string, error) {
	f.getCalls++
	if len(f.getErrs) > 0 {
		err := f.getErrs[0]
		f.getErrs = f.getErrs[1:]
		return "", err
	}
	return f.chatID, nil
}

func (f *fakeProfiles) SetTelegramChatID(_ context.Context, userID, chatID string) error {
	if f.setErr != nil {
		return f.setErr
	}
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	f.saved[userID] = chatID
	return nil
}

type fakeDirectory struct {
	byEmail map[string]*types.TelegramUser
	calls   int
}

func (f *fakeDirectory) FindActiveByEmail(_ context.Context, email string) (*types.TelegramUser, error) {
	f.calls++
	return f.byEmail[email], nil
}

func fastPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
}

func TestLinks_ResolveChatID_FromProfile(t *testing.T) {
	profiles := &fakeProfiles{chatID: "777"}
	dir := &fakeDirectory{}
	links := NewLinks(profiles, dir, fastPolicy(), nil)

	id, err := links.ResolveChatID(context.Background(), "u1", "minh@example.com")
	require.NoError(t, err)
	assert.Equal(t, "777", id)
	assert.Zero(t, dir.calls, "the directory is only consulted without a profile link")
}

func TestLinks_ResolveChatID_AdoptsByEmail(t *testing.T) {
	profiles := &fakeProfiles{}
	dir := &fakeDirectory{byEmail: map[string]*types.TelegramUser{
		"minh@example.com": {ChatID: "888", Email: "minh@example.com", IsActive: true},
	}}
	links := NewLinks(profiles, dir, fastPolicy(), nil)

	id, err := links.ResolveChatID(context.Background(), "u1", "minh@example.com")
	require.NoError(t, err)
	assert.Equal(t, "888", id)
	assert.Equal(t, "888", profiles.saved["u1"])
}

func TestLinks_ResolveChatID_SaveFailureStillReturnsChat(t *testing.T) {
	profiles := &fakeProfiles{setErr: errors.New("read only")}
	dir := &fakeDirectory{byEmail: map[string]*types.TelegramUser{"a@b.vn": {ChatID: "888"}}}
	links := NewLinks(profiles, dir, fastPolicy(), nil)

	id, err := links.ResolveChatID(context.Background(), "u1", "a@b.vn")
	require.NoError(t, err)
	assert.Equal(t, "888", id)
}

func TestLinks_ResolveChatID_None(t *testing.T) {
	links := NewLinks(&fakeProfiles{}, &fakeDirectory{}, fastPolicy(), nil)

	id, err := links.ResolveChatID(context.Background(), "u1", "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, id)

	id, err = links.ResolveChatID(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestLinks_ResolveChatID_RetriesProfileRead(t *testing.T) {
	profiles := &fakeProfiles{chatID: "777", getErrs: []error{errors.New("timeout"), errors.New("timeout")}}
	links := NewLinks(profiles, nil, fastPolicy(), nil)

	id, err := links.ResolveChatID(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, "777", id)
	assert.Equal(t, 3, profiles.getCalls)
}

func TestLinks_ResolveChatID_GivesUp(t *testing.T) {
	boom := errors.New("timeout")
	profiles := &fakeProfiles{getErrs: []error{boom, boom, boom}}
	links := NewLinks(profiles, nil, fastPolicy(), nil)

	_, err := links.ResolveChatID(context.Background(), "u1", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestLinks_IsTelegramEnabled(t *testing.T) {
	links := NewLinks(&fakeProfiles{enabled: true}, nil, retry.Policy{}, nil)
	ok, err := links.IsTelegramEnabled(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}
