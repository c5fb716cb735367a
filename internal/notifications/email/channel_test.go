package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floodwatch/internal/types"
)

type mockEmailProvider struct {
	calls   int
	to      string
	subject string
	html    string
	msgID   string
	err     error
}

func (m *mockEmailProvider) SendEmail(_ context.Context, to, subject, html string) (string, error) {
	m.calls++
	m.to, m.subject, m.html = to, subject, html
	if m.err != nil {
		return "", m.err
	}
	return m.msgID, nil
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(RendererConfig{AppURL: "https://floodwatch.vn"})
	require.NoError(t, err)
	return r
}

func TestChannel_Type(t *testing.T) {
	ch := NewChannel(ChannelConfig{Provider: &mockEmailProvider{}})
	assert.Equal(t, types.ChannelEmail, ch.Type())
}

func TestChannel_SendAlert_WrapsBody(t *testing.T) {
	provider := &mockEmailProvider{msgID: "re_123"}
	ch := NewChannel(ChannelConfig{Provider: provider, Renderer: newTestRenderer(t)})
	ch.now = func() time.Time { return time.Date(2026, 10, 14, 1, 30, 0, 0, time.UTC) }

	id, err := ch.SendAlert(context.Background(), " minh@example.com ", types.AlertContent{
		Subject:  "📍 Minh ơi, Nhà đang có 2 sensors cảnh báo",
		HTMLBody: "<p>Chào Minh</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "re_123", id)
	assert.Equal(t, "minh@example.com", provider.to)
	assert.Equal(t, "📍 Minh ơi, Nhà đang có 2 sensors cảnh báo", provider.subject)
	assert.Contains(t, provider.html, "<p>Chào Minh</p>")
	assert.Contains(t, provider.html, "08:30:00 14/10/2026", "footer time is in Asia/Ho_Chi_Minh")
	assert.Contains(t, provider.html, `href="https://floodwatch.vn"`)
}

func TestChannel_SendAlert_NoRenderer(t *testing.T) {
	provider := &mockEmailProvider{msgID: "id"}
	ch := NewChannel(ChannelConfig{Provider: provider})

	_, err := ch.SendAlert(context.Background(), "a@b.vn", types.AlertContent{Subject: "s", HTMLBody: "<p>raw</p>"})
	require.NoError(t, err)
	assert.Equal(t, "<p>raw</p>", provider.html)
}

func TestChannel_SendAlert_NoRecipient(t *testing.T) {
	provider := &mockEmailProvider{}
	ch := NewChannel(ChannelConfig{Provider: provider})

	_, err := ch.SendAlert(context.Background(), "   ", types.AlertContent{Subject: "s"})
	assert.ErrorIs(t, err, ErrNoRecipient)
	assert.Zero(t, provider.calls)
}

func TestChannel_SendAlert_ProviderError(t *testing.T) {
	upstream := types.NewAppError(types.ErrCodeUpstreamEmailProvider, "resend returned 500", nil)
	provider := &mockEmailProvider{err: upstream}
	ch := NewChannel(ChannelConfig{Provider: provider})

	_, err := ch.SendAlert(context.Background(), "a@b.vn", types.AlertContent{Subject: "s", HTMLBody: "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, upstream))
	assert.True(t, strings.HasPrefix(err.Error(), "email channel:"))
}
