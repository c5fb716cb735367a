// Package core holds the delivery metrics shared by the email and Telegram
// notification channels.
package core

import (
	"context"
	"time"

	"floodwatch/internal/types"
)

// Metric names and dimensions shared by the CloudWatch and Prometheus sinks.
const (
	MetricNamespace       = "FloodWatch"
	MetricDeliveryAttempt = "DeliveryAttempt"
	MetricQueueLag        = "CheckQueueLag"
	DimChannel            = "Channel"
	DimResult             = "Result"
)

// MetricResult categorizes a delivery outcome for metrics reporting.
type MetricResult string

const (
	MetricSuccess MetricResult = "success"
	MetricFailed  MetricResult = "failed"
	MetricSkipped MetricResult = "skipped"
)

// ResultOf maps a channel outcome onto a MetricResult.
func ResultOf(o types.ChannelOutcome) MetricResult {
	switch {
	case o.Skipped:
		return MetricSkipped
	case o.Success:
		return MetricSuccess
	default:
		return MetricFailed
	}
}

// NotificationMetrics records delivery outcomes.
type NotificationMetrics interface {
	RecordDelivery(ctx context.Context, channel types.ChannelType, result MetricResult)
	RecordLatency(ctx context.Context, channel types.ChannelType, duration time.Duration)
	RecordQueueLag(ctx context.Context, lag time.Duration)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) RecordDelivery(context.Context, types.ChannelType, MetricResult) {}
func (NoopMetrics) RecordLatency(context.Context, types.ChannelType, time.Duration) {}
func (NoopMetrics) RecordQueueLag(context.Context, time.Duration)                   {}

var _ NotificationMetrics = NoopMetrics{}
