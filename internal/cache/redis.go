// Package cache holds the Redis-backed coordination shared by API replicas:
// the scheduler tick guard and the request rate-limit counters.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"floodwatch/internal/config"
	"floodwatch/internal/core"
)

// KeyPrefix namespaces every key written by this package.
const KeyPrefix = "floodwatch:"

// NewRedisClient connects and pings. It returns nil, nil when no address is
// configured.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password.Unmask(),
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// setNX is the one command the guard issues; *redis.Client satisfies it.
type setNX interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

// TickGuard claims a key with SET NX so one replica wins each tick.
type TickGuard struct {
	client setNX
}

// NewTickGuard creates a TickGuard over client.
func NewTickGuard(client *redis.Client) *TickGuard {
	return &TickGuard{client: client}
}

// Acquire returns true when owner won key for ttl, false when another owner
// holds it.
func (g *TickGuard) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, KeyPrefix+key, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("tick guard %s: %w", key, err)
	}
	return ok, nil
}

type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	PExpire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
}

// RateLimiter counts requests in fixed windows. The first hit of a window
// starts its expiry.
type RateLimiter struct {
	client counter
	now    func() time.Time
}

// NewRateLimiter creates a RateLimiter over client.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// IncrementAndCheck implements core.RateLimitStore.
func (l *RateLimiter) IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (core.RateLimitResult, error) {
	full := KeyPrefix + key
	n, err := l.client.Incr(ctx, full).Result()
	if err != nil {
		return core.RateLimitResult{}, fmt.Errorf("rate limit incr %s: %w", key, err)
	}

	ttl := window
	if n == 1 {
		if err := l.client.PExpire(ctx, full, window).Err(); err != nil {
			return core.RateLimitResult{}, fmt.Errorf("rate limit expire %s: %w", key, err)
		}
	} else if d, err := l.client.PTTL(ctx, full).Result(); err == nil && d > 0 {
		ttl = d
	} else if err == nil {
		// The key lost its expiry; restart the window.
		_ = l.client.PExpire(ctx, full, window).Err()
	}

	return core.RateLimitResult{
		Allowed:   n <= int64(limit),
		Remaining: max(limit-int(n), 0),
		ResetAt:   l.now().Add(ttl),
	}, nil
}

var _ core.RateLimitStore = (*RateLimiter)(nil)
