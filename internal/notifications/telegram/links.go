package telegram

import (
	"context"
	"fmt"

	"floodwatch/internal/retry"
	"floodwatch/internal/types"
)

// ProfileStore is the slice of the profile repository chat linking needs.
type ProfileStore interface {
	IsTelegramEnabled(ctx context.Context, userID string) (bool, error)
	GetTelegramChatID(ctx context.Context, userID string) (string, error)
	SetTelegramChatID(ctx context.Context, userID, chatID string) error
}

// ChatDirectory finds chats that registered with the bot.
type ChatDirectory interface {
	FindActiveByEmail(ctx context.Context, email string) (*types.TelegramUser, error)
}

// Links decides whether and where a user receives chat alerts.
type Links struct {
	profiles ProfileStore
	chats    ChatDirectory
	policy   retry.Policy
	logger   types.Logger
}

// NewLinks creates Links. A zero policy uses retry.DefaultPolicy.
func NewLinks(profiles ProfileStore, chats ChatDirectory, policy retry.Policy, logger types.Logger) *Links {
	if policy.MaxAttempts == 0 {
		policy = retry.DefaultPolicy()
	}
	if logger == nil {
		logger = types.NewSlogLogger(nil)
	}
	return &Links{profiles: profiles, chats: chats, policy: policy, logger: logger}
}

// IsTelegramEnabled reports the user's Telegram preference. Unset means off.
func (l *Links) IsTelegramEnabled(ctx context.Context, userID string) (bool, error) {
	return l.profiles.IsTelegramEnabled(ctx, userID)
}

// ResolveChatID returns the chat linked to the profile. Without one, an
// active chat registered with the same email is adopted and saved to the
// profile for next time. "" means the user has no reachable chat.
func (l *Links) ResolveChatID(ctx context.Context, userID, email string) (string, error) {
	chatID, err := retry.DoValue(ctx, l.policy, func(ctx context.Context) (string, error) {
		return l.profiles.GetTelegramChatID(ctx, userID)
	})
	if err != nil {
		return "", fmt.Errorf("resolve chat id: %w", err)
	}
	if chatID != "" || email == "" || l.chats == nil {
		return chatID, nil
	}

	u, err := retry.DoValue(ctx, l.policy, func(ctx context.Context) (*types.TelegramUser, error) {
		return l.chats.FindActiveByEmail(ctx, email)
	})
	if err != nil {
		return "", fmt.Errorf("resolve chat id by email: %w", err)
	}
	if u == nil || u.ChatID == "" {
		return "", nil
	}

	if err := l.profiles.SetTelegramChatID(ctx, userID, u.ChatID); err != nil {
		l.logger.Warn("failed to save adopted chat id", "user_id", userID, "error", err.Error())
	} else {
		l.logger.Info("adopted telegram chat by email", "user_id", userID, "chat_id", u.ChatID)
	}
	return u.ChatID, nil
}
