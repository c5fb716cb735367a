package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floodwatch/internal/types"
)

type fakeSender struct {
	chatID string
	text   string
	id     string
	err    error
}

func (f *fakeSender) SendMessage(_ context.Context, chatID, text string) (string, error) {
	f.chatID, f.text = chatID, text
	return f.id, f.err
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func TestChannel_SendAlert(t *testing.T) {
	sender := &fakeSender{id: "42"}
	ch := NewChannel(ChannelConfig{Sender: sender, Clock: fixedClock(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC))})
	alert := types.LocationAlert{
		Location: types.Location{ID: "home", Name: "Nhà"},
		Events:   []types.TriggeringEvent{event("Cầu Rồng", 50, 70, types.SensorCritical)},
	}

	id, err := ch.SendAlert(context.Background(), "777", alert)
	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.Equal(t, "777", sender.chatID)
	assert.Equal(t, FormatAlert(alert, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)), sender.text)
	assert.Equal(t, types.ChannelTelegram, ch.Type())
}

func TestChannel_SendAlert_Errors(t *testing.T) {
	sender := &fakeSender{err: errors.New("chat not found")}
	ch := NewChannel(ChannelConfig{Sender: sender})

	_, err := ch.SendAlert(context.Background(), "", types.LocationAlert{})
	assert.ErrorIs(t, err, ErrNoChat)

	_, err = ch.SendAlert(context.Background(), "777", types.LocationAlert{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
