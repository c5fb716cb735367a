package types

import "strings"

// SensorStatus is the normalized alert state reported for a sensor reading.
type SensorStatus string

const (
	SensorNormal   SensorStatus = "NORMAL"
	SensorWarning  SensorStatus = "WARNING"
	SensorDanger   SensorStatus = "DANGER"
	SensorCritical SensorStatus = "CRITICAL"
	SensorAlert    SensorStatus = "ALERT"
)

// ParseSensorStatus upper-cases raw and maps it onto a known status.
// Unknown or empty values become SensorNormal.
func ParseSensorStatus(raw string) SensorStatus {
	switch s := SensorStatus(strings.ToUpper(strings.TrimSpace(raw))); s {
	case SensorWarning, SensorDanger, SensorCritical, SensorAlert:
		return s
	default:
		return SensorNormal
	}
}

// IsCritical reports whether the status alone warrants an alert.
func (s SensorStatus) IsCritical() bool {
	return s == SensorDanger || s == SensorCritical || s == SensorAlert
}

// Severity ranks statuses for picking the worst reading at a location.
func (s SensorStatus) Severity() int {
	switch s {
	case SensorCritical, SensorAlert:
		return 3
	case SensorDanger:
		return 2
	case SensorWarning:
		return 1
	default:
		return 0
	}
}

// Provenance identifies which source produced a reading.
type Provenance string

const (
	ProvenanceLiveSensor    Provenance = "LIVE_SENSOR"
	ProvenanceAdminZone     Provenance = "ADMIN_ZONE"
	ProvenanceStaticCatalog Provenance = "STATIC_CATALOG"
)

// CatalogRisk is the risk hint attached to static catalog entries.
type CatalogRisk string

const (
	CatalogRiskLow    CatalogRisk = "low"
	CatalogRiskMedium CatalogRisk = "medium"
	CatalogRiskHigh   CatalogRisk = "high"
)

// LocationStatus is the user-visible status of a monitored location.
type LocationStatus string

const (
	LocationSafe     LocationStatus = "safe"
	LocationWarning  LocationStatus = "warning"
	LocationDanger   LocationStatus = "danger"
	LocationCritical LocationStatus = "critical"
)

// LocationStatusFor maps the worst sensor status at a location onto the
// location status written after an alert.
func LocationStatusFor(s SensorStatus) LocationStatus {
	switch s {
	case SensorCritical, SensorAlert:
		return LocationCritical
	case SensorDanger:
		return LocationDanger
	default:
		return LocationWarning
	}
}

// RiskLevel is the ordinal used for user thresholds and rainfall classes.
type RiskLevel int

const (
	RiskSafe     RiskLevel = 0
	RiskWarning  RiskLevel = 1
	RiskDanger   RiskLevel = 2
	RiskCritical RiskLevel = 3
)

// Status returns the LocationStatus name of the level.
func (r RiskLevel) Status() LocationStatus {
	switch {
	case r >= RiskCritical:
		return LocationCritical
	case r == RiskDanger:
		return LocationDanger
	case r == RiskWarning:
		return LocationWarning
	default:
		return LocationSafe
	}
}

// TriggerReason records which rule selected the reason text of an event.
type TriggerReason string

const (
	ReasonHighRiskCatalog   TriggerReason = "high_risk_catalog"
	ReasonCriticalStatus    TriggerReason = "critical_status"
	ReasonThresholdExceeded TriggerReason = "threshold_exceeded"
	ReasonEarlyDetection    TriggerReason = "early_detection"
)

// ChannelType identifies a delivery channel.
type ChannelType string

const (
	ChannelEmail    ChannelType = "email"
	ChannelTelegram ChannelType = "telegram"
)
