// Package alerts turns a user's monitored locations and the current sensor
// readings into deduplicated flood alerts and delivers them.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"floodwatch/internal/geo"
	"floodwatch/internal/risk"
	"floodwatch/internal/types"
)

// DefaultUserName addresses users with no known name.
const DefaultUserName = "Người dùng"

// SettingsReader loads a user's alert settings. A nil result with a nil
// error means none are stored.
type SettingsReader interface {
	GetAlertSettings(ctx context.Context, userID string) (*types.AlertSettings, error)
}

// ProfileReader loads the mutable user profile. A nil result with a nil
// error means no profile exists.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (*types.Profile, error)
}

// LocationReader lists a user's non-deleted locations.
type LocationReader interface {
	ListLocations(ctx context.Context, userID string) ([]types.Location, error)
}

// IdentityProvider resolves a user's authoritative identity.
type IdentityProvider interface {
	GetIdentity(ctx context.Context, userID string) (types.Identity, error)
}

// SensorCollector produces the reading map for one cycle.
type SensorCollector interface {
	Collect(ctx context.Context) map[string]types.SensorReading
}

// AnalyzerConfig wires an Analyzer. Identity may be nil.
type AnalyzerConfig struct {
	Settings  SettingsReader
	Profiles  ProfileReader
	Locations LocationReader
	Identity  IdentityProvider
	Sensors   SensorCollector
	Clock     types.Clock
	Logger    *slog.Logger
}

// Analyzer evaluates every location of one user against one sensor snapshot.
type Analyzer struct {
	settings  SettingsReader
	profiles  ProfileReader
	locations LocationReader
	identity  IdentityProvider
	sensors   SensorCollector
	clock     types.Clock
	logger    *slog.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(cfg AnalyzerConfig) *Analyzer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Analyzer{
		settings:  cfg.Settings,
		profiles:  cfg.Profiles,
		locations: cfg.Locations,
		identity:  cfg.Identity,
		sensors:   cfg.Sensors,
		clock:     clock,
		logger:    logger,
	}
}

// AnalyzeOptions adjusts one analysis.
type AnalyzeOptions struct {
	// MinRiskLevel replaces the risk level reported in the result's
	// thresholds. It is informational: triggering depends on the water level
	// threshold and sensor status only.
	MinRiskLevel *int
}

// AnalyzeUserLocations loads the user's thresholds, identity and locations,
// collects sensor readings once and evaluates every location. Store
// failures are returned; invalid locations are skipped.
func (a *Analyzer) AnalyzeUserLocations(ctx context.Context, userID string, opts AnalyzeOptions) (*types.AnalysisResult, error) {
	logger := a.logger.With("user_id", userID)

	settings, err := a.settings.GetAlertSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("AnalyzeUserLocations: load settings: %w", err)
	}
	thresholds := settings.Thresholds()
	if opts.MinRiskLevel != nil {
		thresholds.RiskLevel = *opts.MinRiskLevel
	}

	user, err := a.resolveUser(ctx, userID, logger)
	if err != nil {
		return nil, err
	}

	stored, err := a.locations.ListLocations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("AnalyzeUserLocations: load locations: %w", err)
	}
	locations := usableLocations(stored, logger)

	result := &types.AnalysisResult{
		UserID:         userID,
		User:           user,
		Thresholds:     thresholds,
		TotalLocations: len(locations),
		Alerts:         []types.TriggeringEvent{},
	}
	if len(locations) == 0 {
		return result, nil
	}

	readings := a.sensors.Collect(ctx)
	if len(readings) == 0 {
		logger.InfoContext(ctx, "no sensor readings available")
		return result, nil
	}

	now := a.clock.Now()
	for _, loc := range locations {
		events := risk.Evaluate(loc, readings, thresholds, now)
		if len(events) > 0 {
			logger.InfoContext(ctx, "location has triggering sensors",
				"location_id", loc.ID,
				"location", loc.Name,
				"sensors", len(events),
			)
		}
		result.Alerts = append(result.Alerts, events...)
	}
	result.AffectedLocations = len(result.Alerts)

	logger.InfoContext(ctx, "analysis complete",
		"locations", result.TotalLocations,
		"sensors", len(readings),
		"alerts", result.AffectedLocations,
	)
	return result, nil
}

// resolveUser prefers the identity provider and falls back to the profile.
// Identity failures are logged; profile failures are returned.
func (a *Analyzer) resolveUser(ctx context.Context, userID string, logger *slog.Logger) (types.UserSummary, error) {
	user := types.UserSummary{UserID: userID, Name: DefaultUserName}

	if a.identity != nil {
		id, err := a.identity.GetIdentity(ctx, userID)
		if err != nil {
			logger.WarnContext(ctx, "identity lookup failed, using profile", "error", err)
		} else {
			user.Email = strings.TrimSpace(id.Email)
			switch {
			case strings.TrimSpace(id.DisplayName) != "":
				user.Name = strings.TrimSpace(id.DisplayName)
			case user.Email != "":
				user.Name = emailLocalPart(user.Email)
			}
		}
	}

	profile, err := a.profiles.GetProfile(ctx, userID)
	if err != nil {
		return user, fmt.Errorf("AnalyzeUserLocations: load profile: %w", err)
	}
	if profile != nil {
		if user.Email == "" {
			user.Email = strings.TrimSpace(profile.Email)
		}
		if user.Name == DefaultUserName && strings.TrimSpace(profile.Name) != "" {
			user.Name = strings.TrimSpace(profile.Name)
		}
	}
	return user, nil
}

func usableLocations(stored []types.Location, logger *slog.Logger) []types.Location {
	out := make([]types.Location, 0, len(stored))
	for _, loc := range stored {
		if loc.Deleted {
			continue
		}
		if loc.Coords == nil || !geo.ValidCoords(loc.Coords.Lat, loc.Coords.Lon) {
			logger.Warn("location skipped: invalid coordinates", "location_id", loc.ID, "location", loc.Name)
			continue
		}
		if loc.AlertRadius <= 0 {
			loc.AlertRadius = types.DefaultAlertRadiusM
		}
		out = append(out, loc)
	}
	return out
}

func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
