package alerts

import (
	"context"
	"sync"
	"time"

	"floodwatch/internal/types"
)

var testNow = time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type mockSettings struct {
	settings *types.AlertSettings
	err      error
}

func (m *mockSettings) GetAlertSettings(context.Context, string) (*types.AlertSettings, error) {
	return m.settings, m.err
}

type mockProfiles struct {
	profile *types.Profile
	err     error
}

func (m *mockProfiles) GetProfile(context.Context, string) (*types.Profile, error) {
	return m.profile, m.err
}

type mockLocations struct {
	locations []types.Location
	err       error
}

func (m *mockLocations) ListLocations(context.Context, string) ([]types.Location, error) {
	return m.locations, m.err
}

type mockIdentity struct {
	identity types.Identity
	err      error
}

func (m *mockIdentity) GetIdentity(context.Context, string) (types.Identity, error) {
	return m.identity, m.err
}

type mockCollector struct {
	readings map[string]types.SensorReading
	calls    int
}

func (m *mockCollector) Collect(context.Context) map[string]types.SensorReading {
	m.calls++
	return m.readings
}

type mockContent struct {
	content types.AlertContent
	err     error
	prompts []string
}

func (m *mockContent) Generate(_ context.Context, prompt string, _ map[string]any) (types.AlertContent, error) {
	m.prompts = append(m.prompts, prompt)
	return m.content, m.err
}

type mockEmail struct {
	mu    sync.Mutex
	id    string
	err   error
	sent  []string
	delay time.Duration
	panic string
}

func (m *mockEmail) SendAlert(_ context.Context, to string, _ types.AlertContent) (string, error) {
	if m.panic != "" {
		panic(m.panic)
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return m.id, m.err
}

type mockTelegram struct {
	mu     sync.Mutex
	id     string
	err    error
	alerts []types.LocationAlert
	chats  []string
	panic  string
}

func (m *mockTelegram) SendAlert(_ context.Context, chatID string, alert types.LocationAlert) (string, error) {
	if m.panic != "" {
		panic(m.panic)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats = append(m.chats, chatID)
	m.alerts = append(m.alerts, alert)
	return m.id, m.err
}

type mockLinks struct {
	enabled    bool
	enabledErr error
	chatID     string
	chatErr    error
}

func (m *mockLinks) IsTelegramEnabled(context.Context, string) (bool, error) {
	return m.enabled, m.enabledErr
}

func (m *mockLinks) ResolveChatID(context.Context, string, string) (string, error) {
	return m.chatID, m.chatErr
}

type mockLogs struct {
	logs []*types.AlertLog
	err  error
}

func (m *mockLogs) InsertAlertLog(_ context.Context, l *types.AlertLog) error {
	m.logs = append(m.logs, l)
	return m.err
}

type statusUpdate struct {
	userID, locationID string
	status             types.LocationStatus
	at                 time.Time
}

type mockStatus struct {
	updates []statusUpdate
	err     error
}

func (m *mockStatus) UpdateLocationStatus(_ context.Context, userID, locationID string, status types.LocationStatus, at time.Time) error {
	m.updates = append(m.updates, statusUpdate{userID, locationID, status, at})
	return m.err
}

type mockLastChecked struct {
	calls []string
	err   error
}

func (m *mockLastChecked) UpdateLastChecked(_ context.Context, userID string, _ time.Time) error {
	m.calls = append(m.calls, userID)
	return m.err
}

// --- Fixtures ---

func location(id string, lat, lon float64) types.Location {
	return types.Location{
		ID:          id,
		Name:        "Địa điểm " + id,
		Address:     "Hải Châu, Đà Nẵng",
		Coords:      &types.Coordinates{Lat: lat, Lon: lon},
		AlertRadius: 1000,
	}
}

// sensorNorth places a reading meters due north of (lat, lon).
func sensorNorth(id string, lat, lon, meters, levelCm float64, status types.SensorStatus) types.SensorReading {
	return types.SensorReading{
		ID:           id,
		Name:         "Cảm biến " + id,
		Coords:       types.Coordinates{Lat: lat + meters/111194.93, Lon: lon},
		WaterLevelCm: levelCm,
		WaterPercent: int(levelCm),
		Status:       status,
		RadiusM:      1000,
		Provenance:   types.ProvenanceLiveSensor,
	}
}

func event(loc types.Location, sensorID string, distance int, status types.SensorStatus) types.TriggeringEvent {
	return types.TriggeringEvent{
		Location:  loc,
		Sensor:    types.SensorReading{ID: sensorID, Name: sensorID, Status: status, WaterLevelCm: 60, WaterPercent: 60},
		DistanceM: distance,
		Timestamp: testNow,
	}
}
