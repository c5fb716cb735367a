package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"floodwatch/internal/types"
)

var _ NotificationMetrics = (*PrometheusMetrics)(nil)

// PrometheusMetrics exposes delivery metrics on the API process's /metrics.
type PrometheusMetrics struct {
	deliveries *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	queueLag   prometheus.Histogram
}

// NewPrometheusMetrics creates and registers the collectors on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floodwatch",
			Name:      "alert_deliveries_total",
			Help:      "Alert delivery attempts by channel and result.",
		}, []string{"channel", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "floodwatch",
			Name:      "alert_delivery_duration_seconds",
			Help:      "Time spent delivering one alert on a channel.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20},
		}, []string{"channel"}),
		queueLag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "floodwatch",
			Name:      "check_queue_lag_seconds",
			Help:      "Time between enqueueing a check job and processing it.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.deliveries, m.latency, m.queueLag)
	return m
}

func (m *PrometheusMetrics) RecordDelivery(_ context.Context, channel types.ChannelType, result MetricResult) {
	m.deliveries.WithLabelValues(string(channel), string(result)).Inc()
}

func (m *PrometheusMetrics) RecordLatency(_ context.Context, channel types.ChannelType, duration time.Duration) {
	m.latency.WithLabelValues(string(channel)).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordQueueLag(_ context.Context, lag time.Duration) {
	m.queueLag.Observe(lag.Seconds())
}
