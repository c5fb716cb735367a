package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floodwatch/internal/types"
)

type fakeSettings struct {
	mu      sync.Mutex
	enabled []types.AlertSettings
	byUser  map[string]*types.AlertSettings
	listErr error
	getErr  error
}

func (f *fakeSettings) ListEnabledSettings(context.Context) ([]types.AlertSettings, error) {
	return f.enabled, f.listErr
}

func (f *fakeSettings) GetAlertSettings(_ context.Context, userID string) (*types.AlertSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.byUser[userID], nil
}

// recorder counts checks per user and signals each one on calls.
type recorder struct {
	mu     sync.Mutex
	counts map[string]int
	calls  chan string
	err    error
	panik  bool
}

func newRecorder() *recorder {
	return &recorder{counts: map[string]int{}, calls: make(chan string, 64)}
}

func (r *recorder) check(_ context.Context, userID string) error {
	r.mu.Lock()
	r.counts[userID]++
	err, panik := r.err, r.panik
	r.mu.Unlock()
	r.calls <- userID
	if panik {
		panic("boom")
	}
	return err
}

func (r *recorder) count(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[userID]
}

func (r *recorder) await(t *testing.T, userID string) {
	t.Helper()
	select {
	case got := <-r.calls:
		require.Equal(t, userID, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for check of %s", userID)
	}
}

// manualTickers hands each timer a channel the test drives.
type manualTickers struct {
	mu        sync.Mutex
	chans     map[time.Duration][]chan time.Time
	intervals []time.Duration
}

func (m *manualTickers) factory(d time.Duration) (<-chan time.Time, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chans == nil {
		m.chans = map[time.Duration][]chan time.Time{}
	}
	ch := make(chan time.Time, 1)
	m.chans[d] = append(m.chans[d], ch)
	m.intervals = append(m.intervals, d)
	return ch, func() {}
}

func (m *manualTickers) fire(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chans := m.chans[d]
	chans[len(chans)-1] <- time.Now()
}

func newTestScheduler(settings SettingsStore, rec *recorder, guard TickGuard) (*Scheduler, *manualTickers) {
	s := New(Config{Settings: settings, Check: rec.check, Guard: guard, Owner: "replica-a", DefaultInterval: 15 * time.Minute})
	tickers := &manualTickers{}
	s.newTicker = tickers.factory
	return s, tickers
}

func TestNormalizeInterval(t *testing.T) {
	tests := []struct {
		raw  int64
		want time.Duration
	}{
		{15, 15 * time.Minute},
		{900000, 15 * time.Minute},
		{1, time.Minute},
		{999, 999 * time.Minute},
		{1000, time.Second},
		{0, DefaultInterval},
		{-5, DefaultInterval},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, NormalizeInterval(tc.raw, DefaultInterval), "raw %d", tc.raw)
	}
	assert.Equal(t, 900000*time.Millisecond, NormalizeInterval(15, 0))
}

func TestScheduler_StartRunsImmediatelyThenOnTick(t *testing.T) {
	settings := &fakeSettings{enabled: []types.AlertSettings{
		{UserID: "u1", Enabled: true, CheckInterval: 5},
		{UserID: "u2", Enabled: true, CheckInterval: 600000},
		{UserID: "u3", Enabled: false, CheckInterval: 5},
	}}
	rec := newRecorder()
	s, tickers := newTestScheduler(settings, rec, nil)
	defer s.Stop()

	require.NoError(t, s.Start(context.Background()))

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case id := <-rec.calls:
			got[id] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for immediate checks")
		}
	}
	assert.Equal(t, map[string]bool{"u1": true, "u2": true}, got)

	status := s.Status()
	assert.True(t, status.IsRunning)
	assert.Equal(t, 2, status.TotalUsers)
	assert.Equal(t, []string{"u1", "u2"}, status.Users)

	iv, ok := s.Interval("u2")
	require.True(t, ok)
	assert.Equal(t, 10*time.Minute, iv)

	tickers.fire(5 * time.Minute)
	rec.await(t, "u1")
	assert.Equal(t, 2, rec.count("u1"))
	assert.Equal(t, 1, rec.count("u2"))
}

func TestScheduler_StartListError(t *testing.T) {
	s, _ := newTestScheduler(&fakeSettings{listErr: errors.New("db down")}, newRecorder(), nil)

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.False(t, s.Status().IsRunning)
}

func TestScheduler_FailedCheckKeepsTimer(t *testing.T) {
	rec := newRecorder()
	rec.err = errors.New("identity provider down")
	s, tickers := newTestScheduler(&fakeSettings{}, rec, nil)
	defer s.Stop()

	s.StartUser("u1", &types.AlertSettings{CheckInterval: 1})
	rec.await(t, "u1")

	tickers.fire(time.Minute)
	rec.await(t, "u1")
	assert.Equal(t, []string{"u1"}, s.Status().Users)
}

func TestScheduler_PanickingCheckKeepsTimer(t *testing.T) {
	rec := newRecorder()
	rec.panik = true
	s, tickers := newTestScheduler(&fakeSettings{}, rec, nil)
	defer s.Stop()

	s.StartUser("u1", &types.AlertSettings{CheckInterval: 1})
	rec.await(t, "u1")
	tickers.fire(time.Minute)
	rec.await(t, "u1")
	assert.Equal(t, 2, rec.count("u1"))
}

func TestScheduler_StartUserReplacesTimer(t *testing.T) {
	rec := newRecorder()
	s, tickers := newTestScheduler(&fakeSettings{}, rec, nil)
	defer s.Stop()

	s.StartUser("u1", &types.AlertSettings{CheckInterval: 5})
	rec.await(t, "u1")
	s.StartUser("u1", &types.AlertSettings{CheckInterval: 10})
	rec.await(t, "u1")

	assert.Equal(t, 1, s.Status().TotalUsers)
	iv, _ := s.Interval("u1")
	assert.Equal(t, 10*time.Minute, iv)
	assert.Equal(t, []time.Duration{5 * time.Minute, 10 * time.Minute}, tickers.intervals)
}

func TestScheduler_StopUserIsIdempotent(t *testing.T) {
	rec := newRecorder()
	s, _ := newTestScheduler(&fakeSettings{}, rec, nil)
	defer s.Stop()

	s.StartUser("u1", nil)
	rec.await(t, "u1")

	assert.True(t, s.StopUser("u1"))
	assert.False(t, s.StopUser("u1"))
	assert.False(t, s.StopUser("never-started"))
	assert.Empty(t, s.Status().Users)
}

func TestScheduler_RestartUser(t *testing.T) {
	settings := &fakeSettings{byUser: map[string]*types.AlertSettings{
		"on":  {UserID: "on", Enabled: true, CheckInterval: 30},
		"off": {UserID: "off", Enabled: false, CheckInterval: 30},
	}}
	rec := newRecorder()
	s, _ := newTestScheduler(settings, rec, nil)
	defer s.Stop()

	s.StartUser("off", &types.AlertSettings{CheckInterval: 5})
	rec.await(t, "off")

	running, err := s.RestartUser(context.Background(), "on")
	require.NoError(t, err)
	assert.True(t, running)
	rec.await(t, "on")
	iv, _ := s.Interval("on")
	assert.Equal(t, 30*time.Minute, iv)

	running, err = s.RestartUser(context.Background(), "off")
	require.NoError(t, err)
	assert.False(t, running)

	running, err = s.RestartUser(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, running)

	assert.Equal(t, []string{"on"}, s.Status().Users)
}

func TestScheduler_RestartUserSettingsError(t *testing.T) {
	s, _ := newTestScheduler(&fakeSettings{getErr: errors.New("db down")}, newRecorder(), nil)

	_, err := s.RestartUser(context.Background(), "u1")
	require.Error(t, err)
}

func TestScheduler_StopClearsEverything(t *testing.T) {
	settings := &fakeSettings{enabled: []types.AlertSettings{{UserID: "u1", Enabled: true}}}
	rec := newRecorder()
	s, _ := newTestScheduler(settings, rec, nil)

	require.NoError(t, s.Start(context.Background()))
	rec.await(t, "u1")

	s.Stop()
	s.Stop()
	assert.Equal(t, Status{IsRunning: false, TotalUsers: 0, Users: []string{}}, s.Status())
}

func TestScheduler_StartUserRefusedWhileStopping(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	check := func(_ context.Context, userID string) error {
		if userID == "slow" {
			entered <- struct{}{}
			<-release
		}
		return nil
	}
	s := New(Config{Settings: &fakeSettings{}, Check: check, DefaultInterval: 15 * time.Minute})
	s.newTicker = (&manualTickers{}).factory

	require.True(t, s.StartUser("slow", nil))
	<-entered

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.stopping
	}, 2*time.Second, time.Millisecond)

	assert.False(t, s.StartUser("late", nil))
	assert.Empty(t, s.Status().Users)

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	assert.True(t, s.StartUser("after", nil), "timers start again once Stop returns")
	s.Stop()
}

func TestScheduler_ContextCancelStopsTimers(t *testing.T) {
	settings := &fakeSettings{enabled: []types.AlertSettings{{UserID: "u1", Enabled: true}}}
	rec := newRecorder()
	s, tickers := newTestScheduler(settings, rec, nil)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Start(ctx))
	rec.await(t, "u1")
	cancel()
	s.wg.Wait()

	tickers.fire(DefaultInterval)
	select {
	case <-rec.calls:
		t.Fatal("no check expected after cancellation")
	case <-time.After(50 * time.Millisecond):
	}
}

type fakeGuard struct {
	mu     sync.Mutex
	ok     bool
	err    error
	keys   []string
	called chan struct{}
}

func newFakeGuard(ok bool, err error) *fakeGuard {
	return &fakeGuard{ok: ok, err: err, called: make(chan struct{}, 8)}
}

func (g *fakeGuard) Acquire(_ context.Context, key, owner string, _ time.Duration) (bool, error) {
	g.mu.Lock()
	g.keys = append(g.keys, key+"/"+owner)
	g.mu.Unlock()
	g.called <- struct{}{}
	return g.ok, g.err
}

func TestScheduler_TickGuard(t *testing.T) {
	t.Run("lost claim skips the check", func(t *testing.T) {
		guard := newFakeGuard(false, nil)
		rec := newRecorder()
		s, _ := newTestScheduler(&fakeSettings{}, rec, guard)

		s.StartUser("u1", nil)
		select {
		case <-guard.called:
		case <-time.After(2 * time.Second):
			t.Fatal("guard never consulted")
		}
		s.Stop()

		assert.Zero(t, rec.count("u1"))
		assert.Equal(t, []string{"tick:u1/replica-a"}, guard.keys)
	})

	t.Run("guard error runs anyway", func(t *testing.T) {
		guard := newFakeGuard(false, errors.New("redis down"))
		rec := newRecorder()
		s, _ := newTestScheduler(&fakeSettings{}, rec, guard)
		defer s.Stop()

		s.StartUser("u1", nil)
		rec.await(t, "u1")
	})

	t.Run("won claim runs", func(t *testing.T) {
		guard := newFakeGuard(true, nil)
		rec := newRecorder()
		s, _ := newTestScheduler(&fakeSettings{}, rec, guard)
		defer s.Stop()

		s.StartUser("u1", nil)
		rec.await(t, "u1")
	})
}
