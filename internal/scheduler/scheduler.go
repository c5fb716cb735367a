// Package scheduler runs each opted-in user's flood check on its own
// recurring timer.
//
// Users move between two states: stopped and running. StartUser fires one
// check immediately and then one per interval; StopUser cancels the timer;
// RestartUser reloads settings and starts again only if alerts are still
// enabled. A failing check is logged and the timer keeps going.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"floodwatch/internal/types"
)

// DefaultInterval applies when a user's stored interval is not positive.
const DefaultInterval = 15 * time.Minute

// minutesCutoff separates raw intervals stored in minutes (below) from
// those stored in milliseconds.
const minutesCutoff = 1000

// NormalizeInterval converts a raw stored interval: values under 1000 are
// minutes, larger values milliseconds. Non-positive values yield def.
func NormalizeInterval(raw int64, def time.Duration) time.Duration {
	switch {
	case raw <= 0:
		return def
	case raw < minutesCutoff:
		return time.Duration(raw) * time.Minute
	default:
		return time.Duration(raw) * time.Millisecond
	}
}

// SettingsStore loads alert settings.
type SettingsStore interface {
	ListEnabledSettings(ctx context.Context) ([]types.AlertSettings, error)
	GetAlertSettings(ctx context.Context, userID string) (*types.AlertSettings, error)
}

// TickGuard lets exactly one replica run a given tick.
type TickGuard interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
}

// CheckFunc runs one full check cycle for a user.
type CheckFunc func(ctx context.Context, userID string) error

// Config wires a Scheduler. Guard may be nil.
type Config struct {
	Settings        SettingsStore
	Check           CheckFunc
	Guard           TickGuard
	GuardTTL        time.Duration
	Owner           string
	DefaultInterval time.Duration
	CycleTimeout    time.Duration
	Logger          *slog.Logger
}

// Status is a snapshot of the scheduler.
type Status struct {
	IsRunning  bool     `json:"isRunning"`
	TotalUsers int      `json:"totalUsers"`
	Users      []string `json:"users"`
}

type userTimer struct {
	cancel   context.CancelFunc
	interval time.Duration
}

// Scheduler owns the per-user timers. All methods are safe for concurrent use.
type Scheduler struct {
	settings        SettingsStore
	check           CheckFunc
	guard           TickGuard
	guardTTL        time.Duration
	owner           string
	defaultInterval time.Duration
	cycleTimeout    time.Duration
	logger          *slog.Logger

	// newTicker is replaced in tests.
	newTicker func(d time.Duration) (<-chan time.Time, func())

	mu       sync.Mutex
	running  bool
	stopping bool
	base    context.Context
	stopAll context.CancelFunc
	users   map[string]*userTimer
	wg      sync.WaitGroup
}

// New creates a stopped Scheduler.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	def := cfg.DefaultInterval
	if def <= 0 {
		def = DefaultInterval
	}
	ttl := cfg.GuardTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Scheduler{
		settings:        cfg.Settings,
		check:           cfg.Check,
		guard:           cfg.Guard,
		guardTTL:        ttl,
		owner:           cfg.Owner,
		defaultInterval: def,
		cycleTimeout:    cfg.CycleTimeout,
		logger:          logger.With("component", "scheduler"),
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
		users: make(map[string]*userTimer),
	}
}

// Start loads every enabled user and starts their timers. Timers stop when
// ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	list, err := s.settings.ListEnabledSettings(ctx)
	if err != nil {
		return fmt.Errorf("scheduler start: %w", err)
	}

	s.mu.Lock()
	if s.stopAll != nil {
		s.stopAll()
	}
	s.base, s.stopAll = context.WithCancel(ctx)
	s.running = true
	s.mu.Unlock()

	started := 0
	for i := range list {
		if !list[i].Enabled {
			continue
		}
		if s.StartUser(list[i].UserID, &list[i]) {
			started++
		}
	}
	s.logger.Info("scheduler started", "users", started)
	return nil
}

// StartUser replaces any timer for userID with a new one at the user's
// interval, and runs the first check immediately. It refuses, returning
// false, while Stop is waiting for timers to drain.
func (s *Scheduler) StartUser(userID string, settings *types.AlertSettings) bool {
	var raw int64
	if settings != nil {
		raw = settings.CheckInterval
	}
	interval := NormalizeInterval(raw, s.defaultInterval)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopping {
		s.logger.Warn("scheduler stopping, user timer not started", "user_id", userID)
		return false
	}
	if t, ok := s.users[userID]; ok {
		t.cancel()
	}
	base := s.base
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithCancel(base)
	s.users[userID] = &userTimer{cancel: cancel, interval: interval}

	tick, stopTicker := s.newTicker(interval)
	s.wg.Add(1)
	go s.loop(ctx, userID, tick, stopTicker)

	s.logger.Info("user timer started", "user_id", userID, "interval", interval.String())
	return true
}

func (s *Scheduler) loop(ctx context.Context, userID string, tick <-chan time.Time, stopTicker func()) {
	defer s.wg.Done()
	defer stopTicker()

	s.runTick(ctx, userID)
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			s.runTick(ctx, userID)
		}
	}
}

// runTick runs one check. Errors and panics are logged, never returned, so
// the timer survives them.
func (s *Scheduler) runTick(ctx context.Context, userID string) {
	if ctx.Err() != nil {
		return
	}
	logger := s.logger.With("user_id", userID)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("scheduled check panicked", "panic", fmt.Sprint(r))
		}
	}()

	if s.guard != nil {
		ok, err := s.guard.Acquire(ctx, "tick:"+userID, s.owner, s.guardTTL)
		if err != nil {
			logger.Warn("tick guard unavailable, running anyway", "error", err)
		} else if !ok {
			logger.Debug("tick claimed by another replica")
			return
		}
	}

	cycleCtx := ctx
	if s.cycleTimeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, s.cycleTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := s.check(cycleCtx, userID); err != nil {
		logger.Error("scheduled check failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return
	}
	logger.Debug("scheduled check done", "elapsed_ms", time.Since(start).Milliseconds())
}

// StopUser cancels the user's timer. It reports whether one was running.
func (s *Scheduler) StopUser(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.users[userID]
	if !ok {
		return false
	}
	t.cancel()
	delete(s.users, userID)
	s.logger.Info("user timer stopped", "user_id", userID)
	return true
}

// RestartUser stops the user's timer, reloads settings and starts again if
// alerts are still enabled. It reports whether a timer is now running.
func (s *Scheduler) RestartUser(ctx context.Context, userID string) (bool, error) {
	s.StopUser(userID)
	settings, err := s.settings.GetAlertSettings(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("scheduler restart %s: %w", userID, err)
	}
	if settings == nil || !settings.Enabled {
		s.logger.Info("alerts disabled, timer not restarted", "user_id", userID)
		return false, nil
	}
	return s.StartUser(userID, settings), nil
}

// Stop cancels every timer and waits for in-flight checks to return.
// Calling it more than once is harmless.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for id, t := range s.users {
		t.cancel()
		delete(s.users, id)
	}
	if s.stopAll != nil {
		s.stopAll()
		s.stopAll = nil
	}
	s.base = nil
	wasRunning := s.running
	s.running = false
	s.stopping = true
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.stopping = false
	s.mu.Unlock()
	if wasRunning {
		s.logger.Info("scheduler stopped")
	}
}

// Status returns a snapshot with user ids sorted.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]string, 0, len(s.users))
	for id := range s.users {
		users = append(users, id)
	}
	sort.Strings(users)
	return Status{IsRunning: s.running, TotalUsers: len(users), Users: users}
}

// Interval returns the user's active interval, or false when not scheduled.
func (s *Scheduler) Interval(userID string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.users[userID]
	if !ok {
		return 0, false
	}
	return t.interval, true
}
