package alerts

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"floodwatch/internal/types"
)

// FallbackSubject is used when content generation fails.
const FallbackSubject = "⚠️ CẢNH BÁO NGUY CƠ NGẬP LỤT"

var locationTypeLabels = map[string]string{
	"residential":   "Nhà",
	"office":        "Công ty/Văn phòng",
	"entertainment": "Khu vui chơi",
	"school":        "Trường học",
	"hospital":      "Bệnh viện",
	"other":         "Địa điểm",
}

// ContentSchema is the structured response the generator must return.
var ContentSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"subject":  map[string]any{"type": "string"},
		"htmlBody": map[string]any{"type": "string"},
	},
	"required": []string{"subject", "htmlBody"},
}

// BuildPrompt renders the deterministic generation prompt for one grouped
// location alert.
func BuildPrompt(alert types.LocationAlert) string {
	name := alert.User.Name
	if name == "" {
		name = "Bạn"
	}
	label, ok := locationTypeLabels[alert.Location.Type]
	if !ok {
		label = alert.Location.Name
	}
	n := len(alert.Events)

	var sensors strings.Builder
	for i, e := range alert.Events {
		if i > 0 {
			sensors.WriteByte('\n')
		}
		fmt.Fprintf(&sensors, "- %s: %dm, mực nước %scm (%d%%), trạng thái %s",
			e.Sensor.Name, e.DistanceM, strconv.FormatFloat(e.Sensor.WaterLevelCm, 'f', -1, 64), e.Sensor.WaterPercent, e.Sensor.Status)
	}

	var b strings.Builder
	b.WriteString("Bạn là một hệ thống AI chuyên tạo cảnh báo ngập lụt CÁ NHÂN HÓA bằng tiếng Việt.\n\n")
	b.WriteString("THÔNG TIN NGƯỜI DÙNG:\n")
	fmt.Fprintf(&b, "- Tên: %s\n", name)
	fmt.Fprintf(&b, "- Email: %s\n", alert.User.Email)
	fmt.Fprintf(&b, "- Địa điểm quan tâm: %s %q\n", label, alert.Location.Name)
	fmt.Fprintf(&b, "- Địa chỉ: %s\n\n", alert.Location.Address)
	fmt.Fprintf(&b, "CÓ %d SENSORS GẦN ĐÓ ĐANG CẢNH BÁO:\n%s\n\n", n, sensors.String())
	b.WriteString("YÊU CẦU TẠO EMAIL:\n")
	b.WriteString("1. **Tiêu đề (subject):**\n")
	b.WriteString("   - Có icon 📍\n")
	fmt.Fprintf(&b, "   - Có tên người dùng %q\n", name)
	fmt.Fprintf(&b, "   - Đề cập đến %q\n", alert.Location.Name)
	fmt.Fprintf(&b, "   - Nhấn mạnh có %d sensors đang cảnh báo\n\n", n)
	b.WriteString("2. **Nội dung (htmlBody):**\n")
	fmt.Fprintf(&b, "   - Chào %q\n", name)
	fmt.Fprintf(&b, "   - Liệt kê TẤT CẢ %d sensors với khoảng cách và mực nước\n", n)
	b.WriteString("   - Dùng HTML: <p>, <b>, <ul>, <li>, <br>\n")
	b.WriteString("   - Màu đỏ cho nguy hiểm: <span style=\"color:red;\">\n")
	b.WriteString("   - Đề xuất biện pháp phòng ngừa\n")
	b.WriteString("   - Ký tên: \"Hệ thống Cảnh báo Ngập lụt AI\"\n\n")
	fmt.Fprintf(&b, "Tạo email NGẮN GỌN, DỄ ĐỌC, CÓ ĐỦ %d SENSORS!\n", n)
	return b.String()
}

// FallbackContent is the static alert used when the generator fails.
func FallbackContent(alert types.LocationAlert) types.AlertContent {
	var items strings.Builder
	for _, e := range alert.Events {
		fmt.Fprintf(&items, "<li><b>%s</b>: cách %dm, mực nước %scm (%d%%), trạng thái %s</li>",
			html.EscapeString(e.Sensor.Name), e.DistanceM, strconv.FormatFloat(e.Sensor.WaterLevelCm, 'f', -1, 64), e.Sensor.WaterPercent, e.Sensor.Status)
	}
	body := fmt.Sprintf(
		"<p>Chào %s,</p><p>Phát hiện nguy cơ ngập lụt gần <b>%s</b>.</p><ul>%s</ul>"+
			"<p>Vui lòng theo dõi sát tình hình thời tiết tại khu vực của bạn.</p>"+
			"<p>Hệ thống Cảnh báo Ngập lụt AI</p>",
		html.EscapeString(alert.User.Name), html.EscapeString(alert.Location.Name), items.String(),
	)
	return types.AlertContent{Subject: FallbackSubject, HTMLBody: body}
}
