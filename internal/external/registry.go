package external

import (
	"fmt"
	"log/slog"
	"net/http"

	"floodwatch/internal/config"
)

// Clients holds the vendor clients built from configuration. Content and
// Telegram are nil when their credentials are not configured.
type Clients struct {
	Email    EmailProvider
	Content  *GeminiClient
	Telegram *TelegramClient
}

// NewClients builds the vendor clients. In test mode, or with the "log"
// email provider, email is written to the log instead of being sent.
func NewClients(cfg *config.Config, logger *slog.Logger) (*Clients, error) {
	if logger == nil {
		logger = slog.Default()
	}
	email, err := newEmailProvider(cfg, logger)
	if err != nil {
		return nil, err
	}
	clients := &Clients{Email: email}

	if key := cfg.Gemini.APIKey.Unmask(); key != "" {
		clients.Content = NewGeminiClient(&http.Client{Timeout: cfg.Gemini.Timeout}, GeminiClientConfig{
			APIKey:  key,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
		})
	} else {
		logger.Warn("content generator not configured; alerts use fallback content")
	}

	if token := cfg.Telegram.BotToken.Unmask(); token != "" && !cfg.IsTestMode {
		tg, err := NewTelegramClient(TelegramClientConfig{
			Token:       token,
			APIEndpoint: cfg.Telegram.APIEndpoint,
			Timeout:     cfg.Telegram.SendTimeout,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("telegram bot authenticated", "bot", tg.Username())
		clients.Telegram = tg
	}
	return clients, nil
}

func newEmailProvider(cfg *config.Config, logger *slog.Logger) (EmailProvider, error) {
	from := Sender{Address: cfg.Email.FromAddress, Name: cfg.Email.FromName}
	httpClient := &http.Client{Timeout: cfg.Email.Timeout}

	provider := cfg.Email.Provider
	if cfg.IsTestMode {
		provider = config.EmailProviderLog
	}
	switch provider {
	case config.EmailProviderLog:
		return NewLogEmailProvider(logger), nil
	case config.EmailProviderResend:
		return NewResendClient(httpClient, ResendClientConfig{
			APIKey:  cfg.Email.ResendAPIKey.Unmask(),
			From:    from,
			BaseURL: cfg.Email.BaseURL,
		}), nil
	case config.EmailProviderSendGrid:
		return NewSendGridClient(httpClient, SendGridClientConfig{
			APIKey:  cfg.Email.SendGridAPIKey.Unmask(),
			From:    from,
			BaseURL: cfg.Email.BaseURL,
		}), nil
	default:
		return nil, fmt.Errorf("external: unknown email provider %q", provider)
	}
}
