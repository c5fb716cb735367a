// Package queue publishes per-user check jobs to SQS for the Lambda
// fan-out mode.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"floodwatch/internal/config"
)

// MaxBatchEntries is the SQS limit for SendMessageBatch.
const MaxBatchEntries = 10

// SQSSender is the slice of *sqs.Client the trigger uses.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
}

// CheckMessage asks a worker to run one user's check cycle.
type CheckMessage struct {
	UserID      string    `json:"userId"`
	Reason      string    `json:"reason"`
	TraceID     string    `json:"traceId"`
	RequestedAt time.Time `json:"requestedAt"`
}

// DecodeCheckMessage parses a queue body.
func DecodeCheckMessage(body string) (CheckMessage, error) {
	var msg CheckMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return CheckMessage{}, fmt.Errorf("queue: decode check message: %w", err)
	}
	if strings.TrimSpace(msg.UserID) == "" {
		return CheckMessage{}, fmt.Errorf("queue: check message has no userId")
	}
	return msg, nil
}

// CheckTrigger enqueues check jobs.
type CheckTrigger struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
	now      func() time.Time
}

// NewCheckTrigger creates a trigger for the configured check queue.
func NewCheckTrigger(client SQSSender, awsCfg config.AWSConfig, logger *slog.Logger) *CheckTrigger {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckTrigger{
		client:   client,
		queueURL: awsCfg.CheckQueueURL,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// TriggerCheck enqueues a single user's check.
func (t *CheckTrigger) TriggerCheck(ctx context.Context, userID, reason string) error {
	msg := t.newMessage(userID, reason)
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: marshal check message: %w", err)
	}

	_, err = t.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(t.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: reasonAttribute(reason),
	})
	if err != nil {
		return fmt.Errorf("queue: send check for %s: %w", userID, err)
	}
	t.logger.InfoContext(ctx, "check message sent", "user_id", userID, "trace_id", msg.TraceID, "reason", reason)
	return nil
}

// TriggerChecks enqueues one job per user in batches of MaxBatchEntries.
// It returns the number accepted by SQS; entries SQS rejects are logged and
// counted as failures in the returned error.
func (t *CheckTrigger) TriggerChecks(ctx context.Context, userIDs []string, reason string) (int, error) {
	sent, failed := 0, 0
	for start := 0; start < len(userIDs); start += MaxBatchEntries {
		end := min(start+MaxBatchEntries, len(userIDs))

		entries := make([]sqsTypes.SendMessageBatchRequestEntry, 0, end-start)
		owners := make(map[string]string, end-start)
		for _, userID := range userIDs[start:end] {
			body, err := json.Marshal(t.newMessage(userID, reason))
			if err != nil {
				return sent, fmt.Errorf("queue: marshal check message: %w", err)
			}
			id := uuid.NewString()
			owners[id] = userID
			entries = append(entries, sqsTypes.SendMessageBatchRequestEntry{
				Id:                aws.String(id),
				MessageBody:       aws.String(string(body)),
				MessageAttributes: reasonAttribute(reason),
			})
		}

		out, err := t.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
			QueueUrl: aws.String(t.queueURL),
			Entries:  entries,
		})
		if err != nil {
			return sent, fmt.Errorf("queue: send check batch: %w", err)
		}
		sent += len(out.Successful)
		for _, f := range out.Failed {
			failed++
			t.logger.WarnContext(ctx, "check message rejected",
				"user_id", owners[aws.ToString(f.Id)],
				"code", aws.ToString(f.Code),
				"message", aws.ToString(f.Message),
			)
		}
	}

	t.logger.InfoContext(ctx, "check batch sent", "sent", sent, "failed", failed, "reason", reason)
	if failed > 0 {
		return sent, fmt.Errorf("queue: %d of %d check messages rejected", failed, len(userIDs))
	}
	return sent, nil
}

func (t *CheckTrigger) newMessage(userID, reason string) CheckMessage {
	return CheckMessage{
		UserID:      userID,
		Reason:      reason,
		TraceID:     uuid.NewString(),
		RequestedAt: t.now(),
	}
}

func reasonAttribute(reason string) map[string]sqsTypes.MessageAttributeValue {
	return map[string]sqsTypes.MessageAttributeValue{
		"reason": {
			DataType:    aws.String("String"),
			StringValue: aws.String(reason),
		},
	}
}
