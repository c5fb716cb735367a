// Package main is the entry point for the check worker Lambda.
//
// It consumes the check queue filled by the batcher. Each SQS record names
// one user; the worker runs that user's full check cycle, the same one the
// in-process scheduler runs. Failed records are reported as batch item
// failures so SQS redelivers only those.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"floodwatch/internal/app"
	"floodwatch/internal/config"
	"floodwatch/internal/db"
	ncore "floodwatch/internal/notifications/core"
	"floodwatch/internal/queue"
	"floodwatch/internal/types"
)

type cycleRunner interface {
	RunCycle(ctx context.Context, userID string) error
}

// Handler processes one SQS batch.
type Handler struct {
	runner       cycleRunner
	metrics      ncore.NotificationMetrics
	cycleTimeout time.Duration
	clock        types.Clock
	logger       *slog.Logger
}

// Handle runs one cycle per record. Malformed records are dropped rather
// than retried since redelivery cannot fix them.
func (h *Handler) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, record := range ev.Records {
		if err := h.process(ctx, record); err != nil {
			h.logger.ErrorContext(ctx, "check failed",
				"message_id", record.MessageId,
				"error", err,
			)
			resp.BatchItemFailures = append(resp.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}
	return resp, nil
}

func (h *Handler) process(ctx context.Context, record events.SQSMessage) error {
	msg, err := queue.DecodeCheckMessage(record.Body)
	if err != nil {
		h.logger.WarnContext(ctx, "dropping malformed check message", "message_id", record.MessageId, "error", err)
		return nil
	}
	logger := h.logger.With("user_id", msg.UserID, "trace_id", msg.TraceID, "reason", msg.Reason)
	if !msg.RequestedAt.IsZero() {
		h.metrics.RecordQueueLag(ctx, h.clock.Now().Sub(msg.RequestedAt))
	}

	runCtx := ctx
	if h.cycleTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, h.cycleTimeout)
		defer cancel()
	}
	start := h.clock.Now()
	if err := h.runner.RunCycle(runCtx, msg.UserID); err != nil {
		return err
	}
	logger.InfoContext(ctx, "check completed", "elapsed_ms", h.clock.Now().Sub(start).Milliseconds())
	return nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("check worker initializing (cold start)")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Error("failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}
	cwClient := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})
	metrics := ncore.NewCloudWatchMetrics(cwClient, cfg.Metrics.Namespace, types.NewSlogLogger(logger))

	engine, err := app.Build(ctx, cfg, pool, app.Options{Metrics: metrics, Logger: logger})
	if err != nil {
		logger.Error("failed to build engine", "error", err)
		os.Exit(1)
	}

	handler := &Handler{
		runner:       engine.Service,
		metrics:      metrics,
		cycleTimeout: cfg.Scheduler.CycleTimeout,
		clock:        types.RealClock{},
		logger:       logger,
	}

	logger.Info("check worker initialized", "metric_namespace", cfg.Metrics.Namespace)
	lambda.Start(handler.Handle)
}
