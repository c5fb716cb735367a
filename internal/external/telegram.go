package external

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"floodwatch/internal/types"
)

// DefaultTelegramSendTimeout bounds one sendMessage call.
const DefaultTelegramSendTimeout = 10 * time.Second

// TelegramClient sends chat messages through the Bot API. The bot's HTTP
// traffic goes through a BaseClient.
type TelegramClient struct {
	bot *tgbotapi.BotAPI
}

// TelegramClientConfig configures a TelegramClient.
type TelegramClientConfig struct {
	Token string
	// APIEndpoint is a format string with two %s verbs (token, method).
	// Defaults to tgbotapi.APIEndpoint.
	APIEndpoint string
	Timeout     time.Duration
	MaxRetries  int
}

// NewTelegramClient authenticates the bot with getMe and returns a client.
func NewTelegramClient(cfg TelegramClientConfig, opts ...BaseClientOption) (*TelegramClient, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram: bot token is required")
	}
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTelegramSendTimeout
	}
	base := NewBaseClient(&http.Client{Timeout: timeout}, "telegram", RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		MinWait:    time.Second,
		MaxWait:    5 * time.Second,
	}, userAgent, opts...)

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, base)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamTelegram, "telegram: bot authentication failed", err)
	}
	return &TelegramClient{bot: bot}, nil
}

// Bot exposes the underlying Bot API for the update listener.
func (c *TelegramClient) Bot() *tgbotapi.BotAPI {
	return c.bot
}

// Username is the bot's @handle as reported by getMe.
func (c *TelegramClient) Username() string {
	return c.bot.Self.UserName
}

// SendMessage posts text with Markdown parse mode and returns the message id.
func (c *TelegramClient) SendMessage(ctx context.Context, chatID, text string) (string, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeValidationInvalidPayload, fmt.Sprintf("telegram: invalid chat id %q", chatID), err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	type result struct {
		msg tgbotapi.Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		m, err := c.bot.Send(msg)
		done <- result{m, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", mapTelegramError(r.err)
		}
		return strconv.Itoa(r.msg.MessageID), nil
	}
}

func mapTelegramError(err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return err
	}
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		return types.NewAppError(types.ErrCodeUpstreamTelegram,
			fmt.Sprintf("telegram: %s (%d)", tgErr.Message, tgErr.Code), err)
	}
	return types.NewAppError(types.ErrCodeUpstreamTelegram, "telegram: send failed", err)
}

var _ ChatSender = (*TelegramClient)(nil)
