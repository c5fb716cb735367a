package sensors

import (
	"math"
	"strings"

	"floodwatch/internal/geo"
	"floodwatch/internal/types"
)

// Radius floors per source, in meters.
const (
	LiveRadiusFloorM     = 1000
	ZoneDefaultRadiusM   = 1000
	CatalogDefaultRadius = 500
)

// Synthetic water levels for catalog entries.
const (
	catalogHighLevelCm   = 50
	catalogMediumLevelCm = 30
)

const (
	zonePrefix    = "zone_"
	catalogPrefix = "mock_"
)

// FromLive maps a live telemetry record. Records without both a latitude
// and a longitude are rejected.
func FromLive(r RawRecord, nowMs int64) (types.SensorReading, bool) {
	lat, okLat := r.number("latitude", "lat")
	lon, okLon := r.number("longitude", "lon")
	if !okLat || !okLon || !geo.ValidCoords(lat, lon) {
		return types.SensorReading{}, false
	}

	level := math.Max(0, r.numberOr(0, "water_level_cm"))
	percent, hasPercent := r.number("current_percent")
	if !hasPercent {
		percent = math.Round(level)
	}

	radius := float64(LiveRadiusFloorM)
	if declared, ok := r.number("radius"); ok && declared > 0 {
		radius = math.Max(declared, LiveRadiusFloorM)
	}

	return types.SensorReading{
		ID:           r.ID,
		Name:         firstNonEmpty(r.text("name", "device_id"), r.ID),
		Address:      r.text("address", "location"),
		Coords:       types.Coordinates{Lat: lat, Lon: lon},
		WaterLevelCm: level,
		WaterPercent: capPercent(percent),
		Status:       types.ParseSensorStatus(r.text("flood_status", "status", "alert_status")),
		RadiusM:      radius,
		Provenance:   types.ProvenanceLiveSensor,
		Timestamp:    int64(r.numberOr(float64(nowMs), "timestamp")),
	}, true
}

// FromZone maps an administrative flood zone. Only zones currently in
// warning, danger or critical state are kept.
func FromZone(r RawRecord, nowMs int64) (types.SensorReading, bool) {
	status := strings.ToLower(r.text("alert_status"))
	switch status {
	case "warning", "danger", "critical":
	default:
		return types.SensorReading{}, false
	}

	lat, okLat := r.number("latitude", "lat")
	lon, okLon := r.number("longitude", "lon")
	if !okLat || !okLon || !geo.ValidCoords(lat, lon) {
		return types.SensorReading{}, false
	}

	level := math.Max(0, r.numberOr(0, "current_level"))
	radius := float64(ZoneDefaultRadiusM)
	if declared, ok := r.number("radius"); ok && declared > 0 {
		radius = declared
	}

	return types.SensorReading{
		ID:           zonePrefix + r.ID,
		Name:         firstNonEmpty(r.text("zone_name"), r.ID),
		Address:      r.text("address", "district"),
		Coords:       types.Coordinates{Lat: lat, Lon: lon},
		WaterLevelCm: level,
		WaterPercent: capPercent(math.Round(level)),
		Status:       types.ParseSensorStatus(status),
		RadiusM:      radius,
		Provenance:   types.ProvenanceAdminZone,
		Timestamp:    int64(r.numberOr(float64(nowMs), "last_updated")),
	}, true
}

// FromCatalog maps a static catalog entry. Only high and medium risk
// entries with coordinates are kept; they get a synthetic water level.
func FromCatalog(e CatalogEntry, nowMs int64) (types.SensorReading, bool) {
	var level float64
	risk := types.CatalogRisk(strings.ToLower(strings.TrimSpace(e.RiskLevel)))
	switch risk {
	case types.CatalogRiskHigh:
		level = catalogHighLevelCm
	case types.CatalogRiskMedium:
		level = catalogMediumLevelCm
	default:
		return types.SensorReading{}, false
	}
	if e.Coords == nil || e.Coords.Lat == 0 || e.Coords.Lng == 0 || !geo.ValidCoords(e.Coords.Lat, e.Coords.Lng) {
		return types.SensorReading{}, false
	}

	radius := float64(CatalogDefaultRadius)
	if e.Radius > 0 {
		radius = e.Radius
	}

	return types.SensorReading{
		ID:           catalogPrefix + string(e.ID),
		Name:         firstNonEmpty(e.Name, string(e.ID)),
		Address:      e.Address,
		Coords:       types.Coordinates{Lat: e.Coords.Lat, Lon: e.Coords.Lng},
		WaterLevelCm: level,
		WaterPercent: capPercent(level),
		Status:       types.SensorWarning,
		RadiusM:      radius,
		Provenance:   types.ProvenanceStaticCatalog,
		RiskHint:     risk,
		Timestamp:    nowMs,
	}, true
}

func capPercent(p float64) int {
	switch {
	case math.IsNaN(p) || p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return int(math.Round(p))
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
