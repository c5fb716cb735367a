// Package rainfall classifies forecast rain over the next 24 hours using the
// Vietnamese meteorological bands.
package rainfall

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one forecast step. Rain1h wins over Rain3h; Rain3h is spread
// evenly over the step. IntervalHours defaults to 1.
type Entry struct {
	Rain1h        *float64 `json:"rain1h,omitempty"`
	Rain3h        *float64 `json:"rain3h,omitempty"`
	IntervalHours float64  `json:"intervalHours,omitempty"`
}

// Level is a rainfall band. Levels 1 and above warrant an alert.
type Level int

const (
	LevelSafe Level = iota
	LevelWarning
	LevelDanger
	LevelCritical
)

// Classification describes a band.
type Classification struct {
	Level          Level  `json:"level"`
	Name           string `json:"name"`
	Range          string `json:"range"`
	AlertLevel     string `json:"alertLevel"`
	Color          string `json:"color"`
	Icon           string `json:"icon"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}

var bands = [...]Classification{
	{
		Level: LevelSafe, Name: "Mưa vừa", Range: "<= 50 mm", AlertLevel: "safe",
		Color: "#4CAF50", Icon: "🌦️",
		Description:    "Có thể gây ngập nhẹ cục bộ.",
		Recommendation: "Theo dõi dự báo thời tiết, chuẩn bị đồ dùng phòng mưa.",
	},
	{
		Level: LevelWarning, Name: "Mưa to", Range: "51 - 100 mm", AlertLevel: "warning",
		Color: "#FFC107", Icon: "⚠️",
		Description:    "Nguy hiểm. Gây ngập ứng diện rộng, nguy cơ sạt lở.",
		Recommendation: "Hạn chế di chuyển, tránh xa khu vực ngập sâu và sạt lở. Theo dõi cảnh báo từ chính quyền.",
	},
	{
		Level: LevelDanger, Name: "Mưa rất to", Range: "101 - 200 mm", AlertLevel: "danger",
		Color: "#FF5722", Icon: "🚨",
		Description:    "Rất nguy hiểm. Rủi ro thiên tai cấp 1-2, lũ lụt, chia cắt giao thông.",
		Recommendation: "KHÔNG di chuyển nếu không cần thiết. Di tản khỏi khu vực ngập sâu và sạt lở. Tuân thủ chỉ đạo của chính quyền.",
	},
	{
		Level: LevelCritical, Name: "Mưa đặc biệt to", Range: "> 200 mm", AlertLevel: "critical",
		Color: "#D32F2F", Icon: "🔴",
		Description:    "Thảm họa. Ngập sâu, lũ quét, sạt lở nghiêm trọng.",
		Recommendation: "DI TẢN NGAY! Tìm nơi cao, an toàn. Liên hệ cơ quan cứu hộ nếu cần thiết (113, 114, 115).",
	},
}

// Classify returns the band for a 24h total in millimetres.
func Classify(total24hMM float64) Classification {
	switch {
	case total24hMM <= 50:
		return bands[LevelSafe]
	case total24hMM <= 100:
		return bands[LevelWarning]
	case total24hMM <= 200:
		return bands[LevelDanger]
	default:
		return bands[LevelCritical]
	}
}

// Accumulate sums rain over the first hours of the forecast, rounded to
// one decimal place. A step that straddles the horizon counts only its
// leading part.
func Accumulate(entries []Entry, hours float64) float64 {
	total := decimal.Zero
	consumed := 0.0
	for _, e := range entries {
		if consumed >= hours {
			break
		}
		interval := e.IntervalHours
		if interval <= 0 {
			interval = 1
		}
		take := min(interval, hours-consumed)
		total = total.Add(hourlyRate(e, interval).Mul(decimal.NewFromFloat(take)))
		consumed += take
	}
	f, _ := total.Round(1).Float64()
	return f
}

func hourlyRate(e Entry, interval float64) decimal.Decimal {
	switch {
	case e.Rain1h != nil:
		return decimal.NewFromFloat(*e.Rain1h)
	case e.Rain3h != nil:
		return decimal.NewFromFloat(*e.Rain3h).Div(decimal.NewFromFloat(max(interval, 1)))
	default:
		return decimal.Zero
	}
}

// Place names the analysed area.
type Place struct {
	Name string   `json:"name"`
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
}

// Totals are accumulated millimetres per horizon.
type Totals struct {
	Total24h     float64 `json:"total24h"`
	Total12h     float64 `json:"total12h"`
	Total6h      float64 `json:"total6h"`
	Total3h      float64 `json:"total3h"`
	AvgIntensity float64 `json:"avgIntensity"`
}

// Alert summarises whether the forecast warrants a warning.
type Alert struct {
	ShouldAlert    bool   `json:"shouldAlert"`
	Level          Level  `json:"level"`
	Name           string `json:"name"`
	Message        string `json:"message"`
	Recommendation string `json:"recommendation"`
}

// Analysis is the full result for one forecast.
type Analysis struct {
	Location       Place          `json:"location"`
	Rainfall       Totals         `json:"rainfall"`
	Classification Classification `json:"classification"`
	Alert          Alert          `json:"alert"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Analyze accumulates and classifies a forecast. ok is false when there
// are no entries.
func Analyze(entries []Entry, place Place, now time.Time) (Analysis, bool) {
	if len(entries) == 0 {
		return Analysis{}, false
	}
	if place.Name == "" {
		place.Name = "Khu vực"
	}

	total24 := Accumulate(entries, 24)
	c := Classify(total24)
	avg, _ := decimal.NewFromFloat(total24).Div(decimal.NewFromInt(24)).Round(2).Float64()

	return Analysis{
		Location: place,
		Rainfall: Totals{
			Total24h:     total24,
			Total12h:     Accumulate(entries, 12),
			Total6h:      Accumulate(entries, 6),
			Total3h:      Accumulate(entries, 3),
			AvgIntensity: avg,
		},
		Classification: c,
		Alert: Alert{
			ShouldAlert:    c.Level >= LevelWarning,
			Level:          c.Level,
			Name:           c.Name,
			Message:        c.Description,
			Recommendation: c.Recommendation,
		},
		Timestamp: now.UTC(),
	}, true
}
