// Package risk decides which sensor readings warrant an alert for a
// monitored location.
package risk

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"floodwatch/internal/geo"
	"floodwatch/internal/types"
)

// Evaluate returns one TriggeringEvent per in-range reading that satisfies
// the trigger rules, nearest first. Range is governed by each reading's own
// influence radius; the location's alert radius is not consulted.
func Evaluate(loc types.Location, readings map[string]types.SensorReading, th types.AlertThresholds, now time.Time) []types.TriggeringEvent {
	if loc.Coords == nil || !geo.ValidCoords(loc.Coords.Lat, loc.Coords.Lon) {
		return nil
	}
	if th.WaterLevelCm <= 0 {
		th.WaterLevelCm = types.DefaultWaterLevelThresholdCm
	}

	var events []types.TriggeringEvent
	for _, r := range readings {
		if !geo.ValidCoords(r.Coords.Lat, r.Coords.Lon) {
			continue
		}
		d := geo.RoundMeters(geo.DistanceMeters(loc.Coords.Lat, loc.Coords.Lon, r.Coords.Lat, r.Coords.Lon))
		if float64(d) > r.RadiusM {
			continue
		}
		if !Triggers(r, th) {
			continue
		}
		reason, text := Reason(r, th)
		events = append(events, types.TriggeringEvent{
			Location:   loc,
			Sensor:     r,
			DistanceM:  d,
			Reason:     reason,
			ReasonText: text,
			Timestamp:  now,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].DistanceM != events[j].DistanceM {
			return events[i].DistanceM < events[j].DistanceM
		}
		return events[i].Sensor.ID < events[j].Sensor.ID
	})
	return events
}

// Triggers applies the OR rule set to an in-range reading. A WARNING
// status or a high-risk catalog match alone is not enough; both still
// need the water level to reach the user's threshold.
func Triggers(r types.SensorReading, th types.AlertThresholds) bool {
	exceeds := r.WaterLevelCm >= float64(th.WaterLevelCm)
	highRiskCatalog := r.Provenance == types.ProvenanceStaticCatalog && r.RiskHint == types.CatalogRiskHigh

	return exceeds ||
		r.Status.IsCritical() ||
		(r.Status == types.SensorWarning && exceeds) ||
		(highRiskCatalog && exceeds)
}

// Reason picks the display reason for a triggering reading: catalog risk,
// then critical status, then threshold, then early detection.
func Reason(r types.SensorReading, th types.AlertThresholds) (types.TriggerReason, string) {
	switch {
	case r.Provenance == types.ProvenanceStaticCatalog:
		risk := r.RiskHint
		if risk == "" {
			risk = types.CatalogRiskHigh
		}
		return types.ReasonHighRiskCatalog, fmt.Sprintf("khu vực dễ ngập (%s risk)", risk)
	case r.Status.IsCritical():
		return types.ReasonCriticalStatus, fmt.Sprintf("trạng thái %s", r.Status)
	case r.WaterLevelCm >= float64(th.WaterLevelCm):
		return types.ReasonThresholdExceeded, fmt.Sprintf("vượt ngưỡng %dcm", th.WaterLevelCm)
	default:
		return types.ReasonEarlyDetection, fmt.Sprintf("phát hiện nước %scm (phát hiện sớm)", formatCm(r.WaterLevelCm))
	}
}

func formatCm(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
