package telegrambot

import (
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const plainWelcomeText = "🌊 *Chào mừng đến với Hệ thống Cảnh báo Ngập lụt Đà Nẵng!* 🌧️\n\n" +
	"✅ Bạn đã đăng ký thành công nhận cảnh báo ngập lụt.\n\n" +
	"• Cảnh báo ngập lụt theo thời gian thực\n" +
	"• Thông tin mực nước tại các điểm đo\n" +
	"• Khuyến nghị an toàn khi có nguy cơ\n\n" +
	"📱 Sử dụng /help để xem danh sách lệnh"

const linkErrorText = "❌ Đã xảy ra lỗi khi đăng ký. Vui lòng thử lại sau hoặc liên hệ hỗ trợ."

const goodbyeText = "👋 *Tạm biệt!*\n\n" +
	"Bạn đã hủy đăng ký nhận cảnh báo ngập lụt.\n\n" +
	"Để đăng ký lại, sử dụng lệnh /start bất kỳ lúc nào.\n\n" +
	"🙏 Cảm ơn bạn đã sử dụng dịch vụ!"

const helpText = "📖 *Hướng dẫn Sử dụng*\n\n" +
	"*Các lệnh có sẵn:*\n" +
	"/start - Đăng ký nhận cảnh báo\n" +
	"/stop - Hủy đăng ký\n" +
	"/status - Kiểm tra trạng thái\n" +
	"/help - Hiển thị hướng dẫn\n\n" +
	"⚡ *Cảnh báo tự động:*\n" +
	"Bot sẽ tự động gửi cảnh báo khi phát hiện nguy cơ ngập lụt.\n\n" +
	"💡 *Mẹo:* Bật thông báo để không bỏ lỡ cảnh báo khẩn cấp!"

const fallbackText = "👋 Xin chào! Sử dụng /help để xem danh sách lệnh."

func linkWelcomeText(name, email string) string {
	var b strings.Builder
	b.WriteString("🌊 *Chào mừng đến với Hệ thống Cảnh báo Ngập lụt Đà Nẵng!* 🌧️\n\n")
	b.WriteString("Xin chào *" + tgbotapi.EscapeText(tgbotapi.ModeMarkdown, name) + "*! 👋\n\n")
	b.WriteString("✅ Bạn đã liên kết thành công Telegram với tài khoản của mình.\n")
	if email != "" {
		b.WriteString("📧 Email: " + tgbotapi.EscapeText(tgbotapi.ModeMarkdown, email) + "\n")
	}
	b.WriteString("\n📍 *Những gì bạn sẽ nhận được:*\n")
	b.WriteString("• Cảnh báo khi có nguy cơ ngập gần địa điểm của bạn\n")
	b.WriteString("• Mực nước và khoảng cách tới các điểm đo\n")
	b.WriteString("• Khuyến nghị an toàn cụ thể\n")
	b.WriteString("• Cập nhật trạng thái theo thời gian thực\n\n")
	b.WriteString("📱 Bạn sẽ nhận được thông báo tự động khi có cảnh báo ngập lụt gần vị trí của bạn.\n\n")
	b.WriteString("🛡️ Hãy luôn cảnh giác và an toàn!")
	return b.String()
}

func statusText(now time.Time) string {
	return "📊 *Trạng thái Hệ thống*\n\n" +
		"✅ Bot đang hoạt động bình thường\n" +
		"🔔 Bạn đang nhận cảnh báo\n" +
		"🕐 Cập nhật: " + now.In(vnZone).Format("15:04:05 2/1/2006") + "\n\n" +
		"📱 Sử dụng /help để xem danh sách lệnh"
}
