package external

import "context"

// EmailProvider transmits a pre-rendered HTML email. The sender identity is
// part of the provider configuration.
type EmailProvider interface {
	SendEmail(ctx context.Context, to, subject, html string) (providerMsgID string, err error)
}

// ChatSender posts a Markdown message to a Telegram chat.
type ChatSender interface {
	SendMessage(ctx context.Context, chatID, text string) (messageID string, err error)
}

// Sender is the From identity of outgoing email.
type Sender struct {
	Address string
	Name    string
}
