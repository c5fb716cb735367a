// Package telegram formats flood alerts as Telegram Markdown messages and
// resolves which chat, if any, a user receives them in.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"floodwatch/internal/types"
)

var alertTimeZone = loadZone("Asia/Ho_Chi_Minh")

func loadZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("ICT", 7*3600)
	}
	return loc
}

// esc escapes user-supplied text for legacy Markdown.
func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func cm(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// DescribeWaterLevel puts a water depth in everyday terms.
func DescribeWaterLevel(levelCm float64) string {
	switch {
	case levelCm <= 0:
		return "Không có nước"
	case levelCm < 10:
		return "Nước nhẹ, ướt mặt đường"
	case levelCm < 20:
		return "Nước ngập đến mắt cá chân (~10-20cm)"
	case levelCm < 40:
		return "Nước ngập đến bắp chân (~20-40cm)"
	case levelCm < 60:
		return "Nước ngập đến đầu gối (~40-60cm)"
	case levelCm < 80:
		return "Nước ngập đến đùi (~60-80cm)"
	case levelCm < 100:
		return "Nước ngập đến thắt lưng (~80-100cm)"
	default:
		return "Nước ngập rất sâu (>100cm), nguy hiểm!"
	}
}

// Advice returns the action list for the nearest event, one line each.
// It draws on the water level, the distance and the sensor status in turn.
func Advice(e types.TriggeringEvent, locationName string) []string {
	if locationName == "" {
		locationName = "địa điểm của bạn"
	}
	name := esc(locationName)
	level := e.Sensor.WaterLevelCm
	var out []string

	switch {
	case level >= 60:
		out = append(out,
			"🚗 *Di chuyển xe ngay*: Nước ngập sâu (>60cm), không nên đi xe qua khu vực này",
			"📦 *Bảo vệ đồ đạc*: Di chuyển đồ dùng lên cao, đóng cửa chống nước",
			"🚶 *Tránh đi bộ*: Nước ngập đến đùi, rất nguy hiểm",
		)
	case level >= 40:
		out = append(out,
			"🚗 *Cẩn thận khi lái xe*: Nước ngập đến đầu gối (~40-60cm), xe có thể bị hỏng",
			"👟 *Mang ủng cao*: Nếu phải đi bộ, mang ủng cao để tránh nước",
			"🔄 *Tìm đường khác*: Nên tìm tuyến đường tránh khu vực ngập",
		)
	case level >= 20:
		out = append(out,
			"🚶 *Cẩn thận khi đi bộ*: Nước ngập đến bắp chân (~20-40cm), tránh đi qua",
			"👟 *Mang giày chống nước*: Nếu phải đi, mang giày chống nước",
		)
	case level >= 10:
		out = append(out, "⚠️ *Theo dõi tình hình*: Nước bắt đầu ngập, có thể tăng cao")
	}

	switch d := e.DistanceM; {
	case d <= 100:
		out = append(out,
			fmt.Sprintf("📍 *Rất gần \"%s\"*: Sensor cách chỉ %dm, nguy cơ cao", name, d),
			"🚗 *Di chuyển xe đi xa*: Nếu có xe, nên di chuyển đến nơi cao hơn",
		)
	case d <= 300:
		out = append(out, fmt.Sprintf("📍 *Gần \"%s\"*: Sensor cách %dm, cần theo dõi sát", name, d))
	default:
		out = append(out, fmt.Sprintf("📍 *Trong phạm vi cảnh báo*: Sensor cách %dm từ \"%s\"", d, name))
	}

	switch e.Sensor.Status {
	case types.SensorDanger, types.SensorCritical, types.SensorAlert:
		out = append(out,
			"⚠️ *Tránh khu vực này ngay*: Tìm tuyến đường khác an toàn hơn",
			"📱 *Theo dõi cập nhật*: Tình hình có thể xấu đi nhanh",
		)
	case types.SensorWarning:
		out = append(out, "⚠️ *Theo dõi tình hình*: Có thể ngập trong thời gian tới")
	}
	return out
}

// FormatAlert renders the full chat message for one location alert.
// Events are expected nearest first.
func FormatAlert(alert types.LocationAlert, now time.Time) string {
	userName := alert.User.Name
	if userName == "" {
		userName = "Bạn"
	}
	locName := alert.Location.Name
	if locName == "" {
		locName = "Địa điểm của bạn"
	}

	var b strings.Builder
	b.WriteString("🚨 *CẢNH BÁO NGẬP LỤT* 🚨\n\n")
	fmt.Fprintf(&b, "Chào %s,\n\n", esc(userName))
	fmt.Fprintf(&b, "📍 *Địa điểm:* %s\n", esc(locName))
	if alert.Location.Address != "" {
		fmt.Fprintf(&b, "📫 %s\n", esc(alert.Location.Address))
	}
	b.WriteString("\n")

	if n := len(alert.Events); n > 0 {
		fmt.Fprintf(&b, "⚠️ *%d cảm biến gần đó đang cảnh báo:*\n\n", n)
		for _, e := range alert.Events {
			s := e.Sensor
			name := s.Name
			if name == "" {
				name = "Cảm biến"
			}
			fmt.Fprintf(&b, "• *%s*\n", esc(name))
			if s.Address != "" {
				fmt.Fprintf(&b, "  📍 Địa chỉ sensor: %s\n", esc(s.Address))
			}
			fmt.Fprintf(&b, "  └ Khoảng cách từ \"%s\": *%dm*\n", esc(locName), e.DistanceM)
			fmt.Fprintf(&b, "  └ Mực nước: *%scm* (%d%%)\n", cm(s.WaterLevelCm), s.WaterPercent)
			fmt.Fprintf(&b, "  └ Mô tả: %s\n", DescribeWaterLevel(s.WaterLevelCm))
			fmt.Fprintf(&b, "  └ Trạng thái: *%s*\n\n", s.Status)
		}

		b.WriteString("💡 *GIẢI PHÁP:*\n")
		b.WriteString(strings.Join(Advice(alert.Nearest(), alert.Location.Name), "\n"))
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "⏰ *Thời gian:* %s\n\n", now.In(alertTimeZone).Format("15:04:05 02/01/2006"))
	b.WriteString("📞 *Liên hệ khẩn cấp:*\n")
	b.WriteString("• Công an: *113*\n")
	b.WriteString("• Cứu hỏa: *114*\n")
	b.WriteString("• Cấp cứu: *115*\n\n")
	b.WriteString("⚠️ _Vui lòng chú ý an toàn và theo dõi tình hình!_\n\n")
	b.WriteString("🤖 _Tin nhắn từ Hệ thống Cảnh báo Ngập lụt AI_")
	return b.String()
}
