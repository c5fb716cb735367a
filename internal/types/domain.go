package types

import "time"

// Coordinates is a WGS-84 point in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DefaultAlertRadiusM applies to locations stored without a radius.
const DefaultAlertRadiusM = 1000

// Location is a place a user monitors. The decision engine only writes
// Status and LastChecked.
type Location struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	Name        string         `json:"name"`
	Address     string         `json:"address,omitempty"`
	Type        string         `json:"type,omitempty"`
	Coords      *Coordinates   `json:"coords,omitempty"`
	AlertRadius int            `json:"alertRadius"`
	Status      LocationStatus `json:"status"`
	Priority    string         `json:"priority,omitempty"`
	Deleted     bool           `json:"deleted"`
	LastChecked *time.Time     `json:"lastChecked,omitempty"`
}

// SensorReading is the normalized view of a live sensor, an administrative
// flood zone or a static catalog entry. It lives for one analysis cycle.
type SensorReading struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Address      string       `json:"address,omitempty"`
	Coords       Coordinates  `json:"coords"`
	WaterLevelCm float64      `json:"waterLevel"`
	WaterPercent int          `json:"waterPercent"`
	Status       SensorStatus `json:"status"`
	RadiusM      float64      `json:"radius"`
	Provenance   Provenance   `json:"source"`
	RiskHint     CatalogRisk  `json:"riskLevel,omitempty"`
	Timestamp    int64        `json:"timestamp"`
}

// Default thresholds used when a user has none configured.
const (
	DefaultWaterLevelThresholdCm = 50
	DefaultRiskLevelThreshold    = 1
)

// AlertThresholds are the per-user trigger settings.
type AlertThresholds struct {
	WaterLevelCm int `json:"waterLevel"`
	RiskLevel    int `json:"riskLevel"`
}

// DefaultThresholds returns the thresholds applied when none are stored.
func DefaultThresholds() AlertThresholds {
	return AlertThresholds{
		WaterLevelCm: DefaultWaterLevelThresholdCm,
		RiskLevel:    DefaultRiskLevelThreshold,
	}
}

// TriggeringEvent pairs a location with one in-range reading that warrants
// an alert.
type TriggeringEvent struct {
	Location   Location      `json:"location"`
	Sensor     SensorReading `json:"sensor"`
	DistanceM  int           `json:"distance"`
	Reason     TriggerReason `json:"reasonCode"`
	ReasonText string        `json:"reason"`
	Timestamp  time.Time     `json:"timestamp"`
}

// UserSummary is the identity used to address a user.
type UserSummary struct {
	UserID string `json:"uid"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
}

// AnalysisResult is the outcome of evaluating every location of one user.
type AnalysisResult struct {
	UserID            string            `json:"userId"`
	User              UserSummary       `json:"user"`
	Thresholds        AlertThresholds   `json:"thresholds"`
	TotalLocations    int               `json:"totalLocations"`
	AffectedLocations int               `json:"affectedLocations"`
	Alerts            []TriggeringEvent `json:"alerts"`
}

// ChannelOutcome reports one delivery attempt.
type ChannelOutcome struct {
	Success   bool   `json:"success"`
	Skipped   bool   `json:"skipped,omitempty"`
	Error     string `json:"error,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// DispatchOutcome reports the alert sent for one location.
type DispatchOutcome struct {
	LocationID   string         `json:"locationId"`
	LocationName string         `json:"location"`
	Email        ChannelOutcome `json:"email"`
	Telegram     ChannelOutcome `json:"telegram"`
	Subject      string         `json:"subject,omitempty"`
	SensorsCount int            `json:"sensorsCount"`
	ElapsedMs    int64          `json:"elapsedMs"`
	Error        string         `json:"error,omitempty"`
}

// AlertLogSensor is the per-sensor snapshot stored with an alert log.
type AlertLogSensor struct {
	SensorID     string       `json:"sensorId"`
	SensorName   string       `json:"sensorName"`
	DistanceM    int          `json:"distance"`
	WaterLevelCm float64      `json:"waterLevel"`
	WaterPercent int          `json:"waterPercent"`
	Status       SensorStatus `json:"status"`
	Reason       string       `json:"reason"`
}

// AlertLog is the persisted record of one dispatched location alert.
type AlertLog struct {
	ID                string           `json:"id"`
	UserID            string           `json:"userId"`
	LocationID        string           `json:"locationId"`
	LocationName      string           `json:"locationName"`
	Sensors           []AlertLogSensor `json:"sensors"`
	EmailSent         bool             `json:"emailSent"`
	EmailSubject      string           `json:"emailSubject,omitempty"`
	TelegramSent      bool             `json:"telegramSent"`
	TelegramSkipped   bool             `json:"telegramSkipped"`
	TelegramChatID    string           `json:"telegramChatId,omitempty"`
	TelegramMessageID string           `json:"telegramMessageId,omitempty"`
	IsRead            bool             `json:"isRead"`
	CreatedAt         time.Time        `json:"createdAt"`
}

// AlertSettings holds a user's automatic check preferences. CheckInterval
// is stored raw: values under 1000 are minutes, larger values milliseconds.
type AlertSettings struct {
	UserID              string     `json:"userId"`
	Enabled             bool       `json:"enabled"`
	CheckInterval       int64      `json:"checkInterval"`
	EmailEnabled        bool       `json:"emailEnabled"`
	WaterLevelThreshold int        `json:"waterLevelThreshold"`
	RiskLevelThreshold  int        `json:"riskLevelThreshold"`
	LastChecked         *time.Time `json:"lastChecked,omitempty"`
}

// Thresholds returns the stored thresholds with defaults filled in.
func (s *AlertSettings) Thresholds() AlertThresholds {
	t := DefaultThresholds()
	if s == nil {
		return t
	}
	if s.WaterLevelThreshold > 0 {
		t.WaterLevelCm = s.WaterLevelThreshold
	}
	if s.RiskLevelThreshold > 0 {
		t.RiskLevel = s.RiskLevelThreshold
	}
	return t
}

// Identity is what the authoritative account record knows about a user.
type Identity struct {
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Profile is the mutable user profile record.
type Profile struct {
	UserID                string `json:"userId"`
	Name                  string `json:"name,omitempty"`
	Email                 string `json:"email,omitempty"`
	TelegramChatID        string `json:"telegramChatId,omitempty"`
	TelegramNotifications bool   `json:"telegramNotifications"`
}

// TelegramUser is a chat that has talked to the bot.
type TelegramUser struct {
	ChatID    string    `json:"chatId"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Email     string    `json:"email,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	IsActive  bool      `json:"isActive"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AlertContent is the generated subject and HTML body for one location.
type AlertContent struct {
	Subject  string `json:"subject"`
	HTMLBody string `json:"htmlBody"`
}

// LocationAlert is one deduplicated notification: a location and every
// triggering event near it, nearest first.
type LocationAlert struct {
	User     UserSummary       `json:"user"`
	Location Location          `json:"location"`
	Events   []TriggeringEvent `json:"events"`
}

// Nearest returns the closest triggering event.
func (a LocationAlert) Nearest() TriggeringEvent {
	if len(a.Events) == 0 {
		return TriggeringEvent{}
	}
	return a.Events[0]
}

// WorstStatus returns the most severe sensor status among the events.
func (a LocationAlert) WorstStatus() SensorStatus {
	worst := SensorNormal
	for _, e := range a.Events {
		if e.Sensor.Status.Severity() > worst.Severity() {
			worst = e.Sensor.Status
		}
	}
	return worst
}
