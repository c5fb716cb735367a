package external

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogEmailProvider records emails in the log instead of sending them. It is
// used in local and test mode.
type LogEmailProvider struct {
	logger *slog.Logger
}

// NewLogEmailProvider creates a LogEmailProvider.
func NewLogEmailProvider(logger *slog.Logger) *LogEmailProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmailProvider{logger: logger}
}

func (p *LogEmailProvider) SendEmail(ctx context.Context, to, subject, html string) (string, error) {
	id := "log-" + uuid.NewString()
	p.logger.InfoContext(ctx, "stub: email not sent",
		"message_id", id,
		"subject", subject,
		"html_bytes", len(html),
	)
	return id, nil
}

var _ EmailProvider = (*LogEmailProvider)(nil)
