package alerts

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floodwatch/internal/types"
)

type analyzerFixture struct {
	settings  *mockSettings
	profiles  *mockProfiles
	locations *mockLocations
	identity  *mockIdentity
	sensors   *mockCollector
}

func newAnalyzerFixture() *analyzerFixture {
	return &analyzerFixture{
		settings:  &mockSettings{},
		profiles:  &mockProfiles{},
		locations: &mockLocations{},
		identity:  &mockIdentity{},
		sensors:   &mockCollector{},
	}
}

func (f *analyzerFixture) analyzer() *Analyzer {
	return NewAnalyzer(AnalyzerConfig{
		Settings:  f.settings,
		Profiles:  f.profiles,
		Locations: f.locations,
		Identity:  f.identity,
		Sensors:   f.sensors,
		Clock:     fixedClock{t: testNow},
	})
}

func TestAnalyze_ZeroLocationsShortCircuits(t *testing.T) {
	f := newAnalyzerFixture()

	result, err := f.analyzer().AnalyzeUserLocations(context.Background(), "u1", AnalyzeOptions{})

	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalLocations)
	assert.Equal(t, 0, result.AffectedLocations)
	assert.NotNil(t, result.Alerts)
	assert.Empty(t, result.Alerts)
	assert.Equal(t, 0, f.sensors.calls, "sensors must not be read")
}

func TestAnalyze_DefaultsThresholds(t *testing.T) {
	f := newAnalyzerFixture()

	result, err := f.analyzer().AnalyzeUserLocations(context.Background(), "u1", AnalyzeOptions{})

	require.NoError(t, err)
	assert.Equal(t, types.AlertThresholds{WaterLevelCm: 50, RiskLevel: 1}, result.Thresholds)
}

func TestAnalyze_MinRiskLevelOverride(t *testing.T) {
	f := newAnalyzerFixture()
	f.settings.settings = &types.AlertSettings{WaterLevelThreshold: 30, RiskLevelThreshold: 1}
	level := 2

	result, err := f.analyzer().AnalyzeUserLocations(context.Background(), "u1", AnalyzeOptions{MinRiskLevel: &level})

	require.NoError(t, err)
	assert.Equal(t, types.AlertThresholds{WaterLevelCm: 30, RiskLevel: 2}, result.Thresholds)
}

func TestAnalyze_MinRiskLevelDoesNotChangeTriggers(t *testing.T) {
	home := location("home", 16.05, 108.20)
	readings := map[string]types.SensorReading{
		"a": sensorNorth("a", 16.05, 108.20, 100, 60, types.SensorWarning),
		"b": sensorNorth("b", 16.05, 108.20, 100, 10, types.SensorNormal),
	}

	run := func(opts AnalyzeOptions) *types.AnalysisResult {
		f := newAnalyzerFixture()
		f.locations.locations = []types.Location{home}
		f.sensors.readings = readings
		result, err := f.analyzer().AnalyzeUserLocations(context.Background(), "u1", opts)
		require.NoError(t, err)
		return result
	}

	level := 3
	base := run(AnalyzeOptions{})
	overridden := run(AnalyzeOptions{MinRiskLevel: &level})

	assert.Equal(t, 3, overridden.Thresholds.RiskLevel)
	assert.Equal(t, base.Alerts, overridden.Alerts)
	assert.Equal(t, base.AffectedLocations, overridden.AffectedLocations)
}

func TestAnalyze_CollectsOnceAndCountsEvents(t *testing.T) {
	f := newAnalyzerFixture()
	home := location("home", 16.05, 108.20)
	office := location("office", 16.10, 108.25)
	f.locations.locations = []types.Location{home, office}
	f.sensors.readings = map[string]types.SensorReading{
		"a": sensorNorth("a", 16.05, 108.20, 100, 60, types.SensorWarning),
		"b": sensorNorth("b", 16.05, 108.20, 300, 10, types.SensorDanger),
		"c": sensorNorth("c", 16.10, 108.25, 50, 20, types.SensorNormal),
	}

	result, err := f.analyzer().AnalyzeUserLocations(context.Background(), "u1", AnalyzeOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, f.sensors.calls)
	assert.Equal(t, 2, result.TotalLocations)
	require.Len(t, result.Alerts, 2)
	assert.Equal(t, 2, result.AffectedLocations, "counts events, not locations")
	assert.Equal(t, "a", result.Alerts[0].Sensor.ID)
	assert.Equal(t, "b", result.Alerts[1].Sensor.ID)
}

func TestAnalyze_SkipsDeletedAndInvalidLocations(t *testing.T) {
	f := newAnalyzerFixture()
	deleted := location("gone", 16.05, 108.20)
	deleted.Deleted = true
	noCoords := location("nocoords", 0, 0)
	noCoords.Coords = nil
	nan := location("nan", math.NaN(), 108.2)
	f.locations.locations = []types.Location{deleted, noCoords, nan, location("ok", 16.05, 108.20)}

	result, err := f.analyzer().AnalyzeUserLocations(context.Background(), "u1", AnalyzeOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalLocations)
}

func TestAnalyze_IdentityPreferred(t *testing.T) {
	f := newAnalyzerFixture()
	f.identity.identity = types.Identity{DisplayName: "Trần Minh", Email: "minh@example.vn"}
	f.profiles.profile = &types.Profile{Name: "Profile Name", Email: "profile@example.vn"}

	result, err := f.analyzer().AnalyzeUserLocations(context.Background(), "u1", AnalyzeOptions{})

	require.NoError(t, err)
	assert.Equal(t, types.UserSummary{UserID: "u1", Name: "Trần Minh", Email: "minh@example.vn"}, result.User)
}

func TestAnalyze_IdentityEmailLocalPartAsName(t *testing.T) {
	f := newAnalyzerFixture()
	f.identity.identity = types.Identity{Email: "lan.nguyen@example.vn"}

	result, err := f.analyzer().AnalyzeUserLocations(context.Background(), "u1", AnalyzeOptions{})

	require.NoError(t, err)
	assert.Equal(t, "lan.nguyen", result.User.Name)
}

func TestAnalyze_IdentityFailureFallsBackToProfile(t *testing.T) {
	f := newAnalyzerFixture()
	f.identity.err = errors.New("identity provider down")
	f.profiles.profile = &types.Profile{Name: "Hoa", Email: "hoa@example.vn"}

	result, err := f.analyzer().AnalyzeUserLocations(context.Background(), "u1", AnalyzeOptions{})

	require.NoError(t, err)
	assert.Equal(t, "Hoa", result.User.Name)
	assert.Equal(t, "hoa@example.vn", result.User.Email)
}

func TestAnalyze_DefaultName(t *testing.T) {
	f := newAnalyzerFixture()
	f.identity.err = errors.New("down")

	result, err := f.analyzer().AnalyzeUserLocations(context.Background(), "u1", AnalyzeOptions{})

	require.NoError(t, err)
	assert.Equal(t, DefaultUserName, result.User.Name)
	assert.Empty(t, result.User.Email)
}

func TestAnalyze_StoreFailuresPropagate(t *testing.T) {
	cause := errors.New("db down")

	f := newAnalyzerFixture()
	f.settings.err = cause
	_, err := f.analyzer().AnalyzeUserLocations(context.Background(), "u1", AnalyzeOptions{})
	assert.ErrorIs(t, err, cause)

	f = newAnalyzerFixture()
	f.profiles.err = cause
	_, err = f.analyzer().AnalyzeUserLocations(context.Background(), "u1", AnalyzeOptions{})
	assert.ErrorIs(t, err, cause)

	f = newAnalyzerFixture()
	f.locations.err = cause
	_, err = f.analyzer().AnalyzeUserLocations(context.Background(), "u1", AnalyzeOptions{})
	assert.ErrorIs(t, err, cause)
}

func TestAnalyze_NilIdentityProvider(t *testing.T) {
	f := newAnalyzerFixture()
	f.profiles.profile = &types.Profile{Email: "x@example.vn"}
	a := NewAnalyzer(AnalyzerConfig{
		Settings:  f.settings,
		Profiles:  f.profiles,
		Locations: f.locations,
		Sensors:   f.sensors,
	})

	result, err := a.AnalyzeUserLocations(context.Background(), "u1", AnalyzeOptions{})

	require.NoError(t, err)
	assert.Equal(t, "x@example.vn", result.User.Email)
	assert.Equal(t, DefaultUserName, result.User.Name)
}
