package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"floodwatch/internal/core"
	"floodwatch/internal/types"
)

// TelegramProfiles is the profile side of a Telegram link.
type TelegramProfiles interface {
	GetProfile(ctx context.Context, userID string) (*types.Profile, error)
	ClearTelegramChatID(ctx context.Context, userID string) (string, error)
}

// TelegramChats is the chat side of a Telegram link.
type TelegramChats interface {
	FindByChatID(ctx context.Context, chatID string) (*types.TelegramUser, error)
	Unlink(ctx context.Context, chatID string) error
}

// TelegramStatus is the body of GET /telegram/status/{userId}. A profile
// holding a chat id is linked even when the chat has sent /stop.
type TelegramStatus struct {
	Linked               bool   `json:"linked"`
	ChatID               string `json:"chatId,omitempty"`
	NotificationsEnabled bool   `json:"notificationsEnabled"`
	Username             string `json:"username,omitempty"`
	IsActive             bool   `json:"isActive"`
}

// TelegramHandler serves link status and unlinking.
type TelegramHandler struct {
	profiles  TelegramProfiles
	chats     TelegramChats
	validator *core.Validator
	logger    *slog.Logger
}

// NewTelegramHandler creates a TelegramHandler.
func NewTelegramHandler(profiles TelegramProfiles, chats TelegramChats, v *core.Validator, logger *slog.Logger) *TelegramHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramHandler{profiles: profiles, chats: chats, validator: v, logger: logger}
}

// RegisterRoutes mounts the Telegram routes.
func (h *TelegramHandler) RegisterRoutes(r chi.Router) {
	r.Route("/telegram", func(r chi.Router) {
		r.Get("/status/{userId}", h.Status)
		r.Delete("/link/{userId}", h.Unlink)
	})
}

// Status handles GET /telegram/status/{userId}.
func (h *TelegramHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r, h.validator)
	if !ok {
		return
	}
	profile, err := h.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var status TelegramStatus
	if profile != nil {
		status.ChatID = profile.TelegramChatID
		status.Linked = profile.TelegramChatID != ""
		status.NotificationsEnabled = profile.TelegramNotifications
	}
	if status.Linked {
		chat, err := h.chats.FindByChatID(r.Context(), status.ChatID)
		if err != nil {
			core.Error(w, r, err)
			return
		}
		if chat != nil {
			status.Username = displayUsername(chat)
			status.IsActive = chat.IsActive
		}
	}
	core.OK(w, r, status)
}

// Unlink handles DELETE /telegram/link/{userId}. The chat record is kept
// so the user can link again later.
func (h *TelegramHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r, h.validator)
	if !ok {
		return
	}
	chatID, err := h.profiles.ClearTelegramChatID(r.Context(), userID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if chatID == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundTelegram, "User chưa liên kết Telegram", nil))
		return
	}
	if err := h.chats.Unlink(r.Context(), chatID); err != nil {
		core.Error(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "telegram unlinked", "user_id", userID, "chat_id", chatID)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Success: true, Message: "Đã hủy liên kết Telegram"})
}

func displayUsername(u *types.TelegramUser) string {
	switch {
	case u.Username != "":
		return u.Username
	case u.FirstName != "":
		return u.FirstName
	default:
		return "User"
	}
}
