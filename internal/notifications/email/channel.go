// Package email delivers generated flood alerts over the configured email
// provider, wrapped in the branded layout.
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"floodwatch/internal/external"
	"floodwatch/internal/types"
)

// ErrNoRecipient is returned when the alert has no destination address.
var ErrNoRecipient = errors.New("email channel: no recipient address")

// Channel sends alert content to one address.
type Channel struct {
	provider external.EmailProvider
	renderer *Renderer
	logger   types.Logger
	now      func() time.Time
}

// ChannelConfig holds the dependencies needed to create a Channel.
// Renderer may be nil, in which case the generated body is sent as is.
type ChannelConfig struct {
	Provider external.EmailProvider
	Renderer *Renderer
	Logger   types.Logger
}

// NewChannel creates a Channel.
func NewChannel(cfg ChannelConfig) *Channel {
	logger := cfg.Logger
	if logger == nil {
		logger = types.NewSlogLogger(nil)
	}
	return &Channel{
		provider: cfg.Provider,
		renderer: cfg.Renderer,
		logger:   logger,
		now:      time.Now,
	}
}

// Type returns the channel type identifier for email.
func (c *Channel) Type() types.ChannelType {
	return types.ChannelEmail
}

// SendAlert wraps content and hands it to the provider, returning the
// provider message id. A layout failure degrades to the unwrapped body.
func (c *Channel) SendAlert(ctx context.Context, to string, content types.AlertContent) (string, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return "", ErrNoRecipient
	}
	log := c.logger.With("dest", RedactEmail(to))

	html := content.HTMLBody
	if c.renderer != nil {
		wrapped, err := c.renderer.Wrap(content, c.now())
		if err != nil {
			log.Warn("email layout failed, sending unwrapped body", "error", err.Error())
		} else {
			html = wrapped
		}
	}

	id, err := c.provider.SendEmail(ctx, to, content.Subject, html)
	if err != nil {
		log.Error("email delivery failed", "error", err.Error())
		return "", fmt.Errorf("email channel: %w", err)
	}
	log.Info("email delivered", "message_id", id)
	return id, nil
}
