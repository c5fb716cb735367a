// Package main is the entry point for the check batcher Lambda.
//
// An EventBridge schedule invokes it every few minutes. It loads every user
// with automatic checks enabled, keeps those whose interval has elapsed
// since their last check and enqueues one SQS job per user for the check
// worker. It is the horizontally scaled alternative to the scheduler that
// runs inside cmd/api; deployments use one or the other.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"floodwatch/internal/config"
	"floodwatch/internal/db"
	"floodwatch/internal/queue"
	"floodwatch/internal/scheduler"
	"floodwatch/internal/types"
)

// ReasonScheduled tags jobs enqueued by the batcher.
const ReasonScheduled = "scheduled"

// dueSlack tolerates schedule jitter so a user due a few seconds after the
// invocation is not pushed to the next one.
const dueSlack = 30 * time.Second

type settingsLister interface {
	ListEnabledSettings(ctx context.Context) ([]types.AlertSettings, error)
}

type checkEnqueuer interface {
	TriggerChecks(ctx context.Context, userIDs []string, reason string) (int, error)
}

// Result is returned to the Lambda runtime for the invocation log.
type Result struct {
	Enabled  int `json:"enabled"`
	Due      int `json:"due"`
	Enqueued int `json:"enqueued"`
}

// Handler runs one batcher invocation.
type Handler struct {
	settings        settingsLister
	trigger         checkEnqueuer
	defaultInterval time.Duration
	clock           types.Clock
	logger          *slog.Logger
}

// Handle enqueues a check for every due user.
func (h *Handler) Handle(ctx context.Context, _ events.CloudWatchEvent) (Result, error) {
	all, err := h.settings.ListEnabledSettings(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list enabled settings: %w", err)
	}
	due := DueUsers(all, h.clock.Now(), h.defaultInterval)
	res := Result{Enabled: len(all), Due: len(due)}
	if len(due) == 0 {
		h.logger.InfoContext(ctx, "no users due", "enabled", res.Enabled)
		return res, nil
	}

	sent, err := h.trigger.TriggerChecks(ctx, due, ReasonScheduled)
	res.Enqueued = sent
	if err != nil {
		return res, err
	}
	h.logger.InfoContext(ctx, "checks enqueued", "enabled", res.Enabled, "due", res.Due, "enqueued", sent)
	return res, nil
}

// DueUsers returns the ids of enabled users whose interval has elapsed.
// Users never checked are always due.
func DueUsers(all []types.AlertSettings, now time.Time, def time.Duration) []string {
	var due []string
	for _, s := range all {
		if !s.Enabled || s.UserID == "" {
			continue
		}
		if s.LastChecked != nil {
			interval := scheduler.NormalizeInterval(s.CheckInterval, def)
			if now.Sub(*s.LastChecked)+dueSlack < interval {
				continue
			}
		}
		due = append(due, s.UserID)
	}
	return due
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("check batcher initializing (cold start)")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.AWS.CheckQueueURL == "" {
		logger.Error("SQS_CHECK_QUEUE is required")
		os.Exit(1)
	}

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
	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})

	handler := &Handler{
		settings:        db.NewSettingsRepository(pool),
		trigger:         queue.NewCheckTrigger(sqsClient, cfg.AWS, logger),
		defaultInterval: cfg.Scheduler.DefaultInterval,
		clock:           types.RealClock{},
		logger:          logger,
	}

	logger.Info("check batcher initialized", "queue", cfg.AWS.CheckQueueURL)
	lambda.Start(handler.Handle)
}
