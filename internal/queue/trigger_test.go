package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floodwatch/internal/config"
)

const testQueueURL = "https://sqs.ap-southeast-1.amazonaws.com/123456789/flood-checks"

type mockSQSSender struct {
	calls      []*sqs.SendMessageInput
	batches    []*sqs.SendMessageBatchInput
	err        error
	rejectUser string
}

func (m *mockSQSSender) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.calls = append(m.calls, params)
	if m.err != nil {
		return nil, m.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func (m *mockSQSSender) SendMessageBatch(_ context.Context, params *sqs.SendMessageBatchInput, _ ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error) {
	m.batches = append(m.batches, params)
	if m.err != nil {
		return nil, m.err
	}
	out := &sqs.SendMessageBatchOutput{}
	for _, e := range params.Entries {
		msg, _ := DecodeCheckMessage(aws.ToString(e.MessageBody))
		if msg.UserID == m.rejectUser {
			out.Failed = append(out.Failed, sqsTypes.BatchResultErrorEntry{Id: e.Id, Code: aws.String("InvalidParameterValue"), Message: aws.String("bad")})
			continue
		}
		out.Successful = append(out.Successful, sqsTypes.SendMessageBatchResultEntry{Id: e.Id})
	}
	return out, nil
}

func newTestTrigger(mock *mockSQSSender) *CheckTrigger {
	tr := NewCheckTrigger(mock, config.AWSConfig{CheckQueueURL: testQueueURL}, slog.Default())
	tr.now = func() time.Time { return time.Date(2026, 10, 14, 1, 0, 0, 0, time.UTC) }
	return tr
}

func TestTriggerCheck_SendsMessage(t *testing.T) {
	mock := &mockSQSSender{}
	tr := newTestTrigger(mock)

	require.NoError(t, tr.TriggerCheck(context.Background(), "user-1", "manual"))

	require.Len(t, mock.calls, 1)
	call := mock.calls[0]
	assert.Equal(t, testQueueURL, aws.ToString(call.QueueUrl))
	assert.Equal(t, "manual", aws.ToString(call.MessageAttributes["reason"].StringValue))

	msg, err := DecodeCheckMessage(aws.ToString(call.MessageBody))
	require.NoError(t, err)
	assert.Equal(t, "user-1", msg.UserID)
	assert.Equal(t, "manual", msg.Reason)
	assert.NotEmpty(t, msg.TraceID)
	assert.True(t, msg.RequestedAt.Equal(time.Date(2026, 10, 14, 1, 0, 0, 0, time.UTC)))
}

func TestTriggerCheck_SendError(t *testing.T) {
	mock := &mockSQSSender{err: errors.New("throttled")}
	err := newTestTrigger(mock).TriggerCheck(context.Background(), "user-1", "manual")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user-1")
	assert.ErrorContains(t, err, "throttled")
}

func TestTriggerChecks_Batches(t *testing.T) {
	mock := &mockSQSSender{}
	tr := newTestTrigger(mock)

	users := make([]string, 23)
	for i := range users {
		users[i] = fmt.Sprintf("user-%02d", i)
	}

	sent, err := tr.TriggerChecks(context.Background(), users, "schedule")
	require.NoError(t, err)
	assert.Equal(t, 23, sent)

	require.Len(t, mock.batches, 3)
	assert.Len(t, mock.batches[0].Entries, 10)
	assert.Len(t, mock.batches[1].Entries, 10)
	assert.Len(t, mock.batches[2].Entries, 3)

	ids := map[string]bool{}
	for _, b := range mock.batches {
		for _, e := range b.Entries {
			ids[aws.ToString(e.Id)] = true
		}
	}
	assert.Len(t, ids, 23, "entry ids must be unique")
}

func TestTriggerChecks_PartialFailure(t *testing.T) {
	mock := &mockSQSSender{rejectUser: "user-b"}
	sent, err := newTestTrigger(mock).TriggerChecks(context.Background(), []string{"user-a", "user-b", "user-c"}, "schedule")
	require.Error(t, err)
	assert.Equal(t, 2, sent)
	assert.Contains(t, err.Error(), "1 of 3")
}

func TestTriggerChecks_Empty(t *testing.T) {
	mock := &mockSQSSender{}
	sent, err := newTestTrigger(mock).TriggerChecks(context.Background(), nil, "schedule")
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, mock.batches)
}

func TestDecodeCheckMessage(t *testing.T) {
	_, err := DecodeCheckMessage(`{"reason":"x"}`)
	assert.Error(t, err)

	_, err = DecodeCheckMessage(`not json`)
	assert.Error(t, err)

	msg, err := DecodeCheckMessage(`{"userId":"u1","reason":"schedule"}`)
	require.NoError(t, err)
	assert.Equal(t, "u1", msg.UserID)
}
