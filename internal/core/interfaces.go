package core

import (
	"context"
	"time"
)

// RateLimitStore counts requests per key in fixed windows. Production uses
// Redis; tests use an in-memory fake.
type RateLimitStore interface {
	IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error)
}

// RateLimitResult is the outcome of one IncrementAndCheck.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}
