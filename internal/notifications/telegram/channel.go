package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"floodwatch/internal/external"
	"floodwatch/internal/types"
)

// ErrNoChat is returned when SendAlert is called without a chat id.
var ErrNoChat = errors.New("telegram channel: no chat id")

// Channel sends formatted location alerts to a chat.
type Channel struct {
	sender external.ChatSender
	logger types.Logger
	clock  types.Clock
}

// ChannelConfig holds the dependencies needed to create a Channel.
type ChannelConfig struct {
	Sender external.ChatSender
	Logger types.Logger
	Clock  types.Clock
}

// NewChannel creates a Channel.
func NewChannel(cfg ChannelConfig) *Channel {
	logger := cfg.Logger
	if logger == nil {
		logger = types.NewSlogLogger(nil)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Channel{sender: cfg.Sender, logger: logger, clock: clock}
}

// Type returns the channel type identifier for Telegram.
func (c *Channel) Type() types.ChannelType {
	return types.ChannelTelegram
}

// SendAlert formats alert and sends it, returning the Telegram message id.
func (c *Channel) SendAlert(ctx context.Context, chatID string, alert types.LocationAlert) (string, error) {
	if chatID == "" {
		return "", ErrNoChat
	}
	start := time.Now()
	id, err := c.sender.SendMessage(ctx, chatID, FormatAlert(alert, c.clock.Now()))
	if err != nil {
		c.logger.Error("telegram delivery failed", "chat_id", chatID, "location_id", alert.Location.ID, "error", err.Error())
		return "", fmt.Errorf("telegram channel: %w", err)
	}
	c.logger.Info("telegram alert sent",
		"chat_id", chatID,
		"location_id", alert.Location.ID,
		"message_id", id,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return id, nil
}
