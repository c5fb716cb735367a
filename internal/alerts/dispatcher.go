package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	ncore "floodwatch/internal/notifications/core"
	"floodwatch/internal/types"
)

// ContentGenerator produces the email subject and HTML body from a prompt.
type ContentGenerator interface {
	Generate(ctx context.Context, prompt string, schema map[string]any) (types.AlertContent, error)
}

// EmailSender delivers generated alert content.
type EmailSender interface {
	SendAlert(ctx context.Context, to string, content types.AlertContent) (messageID string, err error)
}

// TelegramSender delivers a location alert to a chat.
type TelegramSender interface {
	SendAlert(ctx context.Context, chatID string, alert types.LocationAlert) (messageID string, err error)
}

// TelegramLinks answers whether and where a user receives chat alerts.
type TelegramLinks interface {
	IsTelegramEnabled(ctx context.Context, userID string) (bool, error)
	ResolveChatID(ctx context.Context, userID, email string) (string, error)
}

// AlertLogWriter persists one alert log per dispatched location.
type AlertLogWriter interface {
	InsertAlertLog(ctx context.Context, log *types.AlertLog) error
}

// LocationStatusWriter records the outcome on the location itself.
type LocationStatusWriter interface {
	UpdateLocationStatus(ctx context.Context, userID, locationID string, status types.LocationStatus, at time.Time) error
}

// DispatcherConfig wires a Dispatcher. Telegram, Links and Metrics may be nil.
type DispatcherConfig struct {
	Content   ContentGenerator
	Email     EmailSender
	Telegram  TelegramSender
	Links     TelegramLinks
	Logs      AlertLogWriter
	Locations LocationStatusWriter
	Metrics   ncore.NotificationMetrics
	Clock     types.Clock
	Logger    *slog.Logger
}

// Dispatcher sends one notification per affected location.
type Dispatcher struct {
	content   ContentGenerator
	email     EmailSender
	telegram  TelegramSender
	links     TelegramLinks
	logs      AlertLogWriter
	locations LocationStatusWriter
	metrics   ncore.NotificationMetrics
	clock     types.Clock
	logger    *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = ncore.NoopMetrics{}
	}
	return &Dispatcher{
		content:   cfg.Content,
		email:     cfg.Email,
		telegram:  cfg.Telegram,
		links:     cfg.Links,
		logs:      cfg.Logs,
		locations: cfg.Locations,
		metrics:   metrics,
		clock:     clock,
		logger:    logger,
	}
}

// DispatchOptions controls one dispatch run.
type DispatchOptions struct {
	SendEmail bool
}

// GroupByLocation collapses events into one LocationAlert per location in
// first-seen order. Event order within a group is preserved.
func GroupByLocation(user types.UserSummary, events []types.TriggeringEvent) []types.LocationAlert {
	index := make(map[string]int)
	var groups []types.LocationAlert
	for _, e := range events {
		i, ok := index[e.Location.ID]
		if !ok {
			i = len(groups)
			index[e.Location.ID] = i
			groups = append(groups, types.LocationAlert{User: user, Location: e.Location})
		}
		groups[i].Events = append(groups[i].Events, e)
	}
	return groups
}

// Dispatch notifies the user once per affected location. Failures are
// reported per location in the returned outcomes.
func (d *Dispatcher) Dispatch(ctx context.Context, analysis *types.AnalysisResult, opts DispatchOptions) []types.DispatchOutcome {
	if analysis == nil || len(analysis.Alerts) == 0 {
		return []types.DispatchOutcome{}
	}
	groups := GroupByLocation(analysis.User, analysis.Alerts)
	outcomes := make([]types.DispatchOutcome, 0, len(groups))
	for _, g := range groups {
		outcomes = append(outcomes, d.dispatchLocation(ctx, analysis.UserID, g, opts))
	}
	return outcomes
}

func (d *Dispatcher) dispatchLocation(ctx context.Context, userID string, alert types.LocationAlert, opts DispatchOptions) (out types.DispatchOutcome) {
	start := time.Now()
	logger := d.logger.With("user_id", userID, "location_id", alert.Location.ID)
	out = types.DispatchOutcome{
		LocationID:   alert.Location.ID,
		LocationName: alert.Location.Name,
		SensorsCount: len(alert.Events),
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.ErrorContext(ctx, "location dispatch panicked", "panic", rec)
			out.Error = fmt.Sprintf("dispatch failed: %v", rec)
		}
		out.ElapsedMs = time.Since(start).Milliseconds()
	}()

	content := d.generate(ctx, alert, logger)
	out.Subject = content.Subject

	var (
		wg     sync.WaitGroup
		chatID string
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer d.recoverChannel(ctx, types.ChannelEmail, &out.Email, logger)
		out.Email = d.sendEmail(ctx, alert.User.Email, content, opts, logger)
	}()
	go func() {
		defer wg.Done()
		defer d.recoverChannel(ctx, types.ChannelTelegram, &out.Telegram, logger)
		out.Telegram, chatID = d.sendTelegram(ctx, userID, alert, logger)
	}()
	wg.Wait()

	now := d.clock.Now()
	d.writeLog(ctx, userID, alert, out, chatID, now, logger)
	d.updateStatus(ctx, userID, alert, now, logger)

	logger.InfoContext(ctx, "location alert dispatched",
		"sensors", out.SensorsCount,
		"email_sent", out.Email.Success,
		"telegram_sent", out.Telegram.Success,
		"telegram_skipped", out.Telegram.Skipped,
	)
	return out
}

// recoverChannel turns a panic inside one channel goroutine into that
// channel's failed outcome. Deferred recovers do not cross goroutines.
func (d *Dispatcher) recoverChannel(ctx context.Context, channel types.ChannelType, dst *types.ChannelOutcome, logger *slog.Logger) {
	rec := recover()
	if rec == nil {
		return
	}
	logger.ErrorContext(ctx, "channel delivery panicked", "channel", channel, "panic", rec)
	*dst = types.ChannelOutcome{Error: fmt.Sprintf("%s delivery failed: %v", channel, rec)}
	d.metrics.RecordDelivery(ctx, channel, ncore.MetricFailed)
}

func (d *Dispatcher) generate(ctx context.Context, alert types.LocationAlert, logger *slog.Logger) types.AlertContent {
	if d.content == nil {
		return FallbackContent(alert)
	}
	content, err := d.content.Generate(ctx, BuildPrompt(alert), ContentSchema)
	if err != nil {
		logger.WarnContext(ctx, "content generation failed, using fallback", "error", err)
		return FallbackContent(alert)
	}
	if strings.TrimSpace(content.Subject) == "" || strings.TrimSpace(content.HTMLBody) == "" {
		logger.WarnContext(ctx, "content generation returned empty fields, using fallback")
		return FallbackContent(alert)
	}
	return content
}

func (d *Dispatcher) sendEmail(ctx context.Context, to string, content types.AlertContent, opts DispatchOptions, logger *slog.Logger) types.ChannelOutcome {
	if !opts.SendEmail || strings.TrimSpace(to) == "" || d.email == nil {
		d.metrics.RecordDelivery(ctx, types.ChannelEmail, ncore.MetricSkipped)
		return types.ChannelOutcome{Skipped: true}
	}
	start := time.Now()
	id, err := d.email.SendAlert(ctx, to, content)
	elapsed := time.Since(start)
	d.metrics.RecordLatency(ctx, types.ChannelEmail, elapsed)

	out := types.ChannelOutcome{ElapsedMs: elapsed.Milliseconds()}
	if err != nil {
		logger.WarnContext(ctx, "email delivery failed", "error", err)
		out.Error = err.Error()
	} else {
		out.Success = true
		out.MessageID = id
	}
	d.metrics.RecordDelivery(ctx, types.ChannelEmail, ncore.ResultOf(out))
	return out
}

func (d *Dispatcher) sendTelegram(ctx context.Context, userID string, alert types.LocationAlert, logger *slog.Logger) (types.ChannelOutcome, string) {
	skipped := types.ChannelOutcome{Skipped: true}
	if d.telegram == nil || d.links == nil {
		d.metrics.RecordDelivery(ctx, types.ChannelTelegram, ncore.MetricSkipped)
		return skipped, ""
	}

	enabled, err := d.links.IsTelegramEnabled(ctx, userID)
	if err != nil {
		logger.WarnContext(ctx, "telegram preference lookup failed", "error", err)
	}
	if !enabled {
		d.metrics.RecordDelivery(ctx, types.ChannelTelegram, ncore.MetricSkipped)
		return skipped, ""
	}
	chatID, err := d.links.ResolveChatID(ctx, userID, alert.User.Email)
	if err != nil {
		logger.WarnContext(ctx, "telegram chat lookup failed", "error", err)
	}
	if chatID == "" {
		d.metrics.RecordDelivery(ctx, types.ChannelTelegram, ncore.MetricSkipped)
		return skipped, ""
	}

	start := time.Now()
	id, err := d.telegram.SendAlert(ctx, chatID, alert)
	elapsed := time.Since(start)
	d.metrics.RecordLatency(ctx, types.ChannelTelegram, elapsed)

	out := types.ChannelOutcome{ElapsedMs: elapsed.Milliseconds()}
	if err != nil {
		logger.WarnContext(ctx, "telegram delivery failed", "error", err)
		out.Error = err.Error()
	} else {
		out.Success = true
		out.MessageID = id
	}
	d.metrics.RecordDelivery(ctx, types.ChannelTelegram, ncore.ResultOf(out))
	return out, chatID
}

func (d *Dispatcher) writeLog(ctx context.Context, userID string, alert types.LocationAlert, out types.DispatchOutcome, chatID string, now time.Time, logger *slog.Logger) {
	if d.logs == nil {
		return
	}
	sensors := make([]types.AlertLogSensor, 0, len(alert.Events))
	for _, e := range alert.Events {
		sensors = append(sensors, types.AlertLogSensor{
			SensorID:     e.Sensor.ID,
			SensorName:   e.Sensor.Name,
			DistanceM:    e.DistanceM,
			WaterLevelCm: e.Sensor.WaterLevelCm,
			WaterPercent: e.Sensor.WaterPercent,
			Status:       e.Sensor.Status,
			Reason:       e.ReasonText,
		})
	}
	entry := &types.AlertLog{
		ID:                uuid.NewString(),
		UserID:            userID,
		LocationID:        alert.Location.ID,
		LocationName:      alert.Location.Name,
		Sensors:           sensors,
		EmailSent:         out.Email.Success,
		EmailSubject:      out.Subject,
		TelegramSent:      out.Telegram.Success,
		TelegramSkipped:   out.Telegram.Skipped,
		TelegramChatID:    chatID,
		TelegramMessageID: out.Telegram.MessageID,
		IsRead:            false,
		CreatedAt:         now,
	}
	if err := d.logs.InsertAlertLog(ctx, entry); err != nil {
		logger.ErrorContext(ctx, "failed to write alert log", "error", err)
	}
}

func (d *Dispatcher) updateStatus(ctx context.Context, userID string, alert types.LocationAlert, now time.Time, logger *slog.Logger) {
	if d.locations == nil {
		return
	}
	status := types.LocationStatusFor(alert.WorstStatus())
	if err := d.locations.UpdateLocationStatus(ctx, userID, alert.Location.ID, status, now); err != nil {
		logger.ErrorContext(ctx, "failed to update location status", "error", err, "status", status)
	}
}
