package db

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"floodwatch/internal/types"
)

// AlertLogRepository persists dispatched alerts.
type AlertLogRepository struct {
	db DBTX
}

// NewAlertLogRepository creates a new AlertLogRepository.
func NewAlertLogRepository(db DBTX) *AlertLogRepository {
	return &AlertLogRepository{db: db}
}

// InsertAlertLog stores one log entry. A missing ID is generated and a zero
// CreatedAt is left to the database default.
func (r *AlertLogRepository) InsertAlertLog(ctx context.Context, log *types.AlertLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	sensorsJSON, err := json.Marshal(log.Sensors)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode alert log sensors", err)
	}
	if log.Sensors == nil {
		sensorsJSON = []byte("[]")
	}

	createdAt := any(nil)
	if !log.CreatedAt.IsZero() {
		createdAt = log.CreatedAt.UTC()
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO alert_logs (id, user_id, location_id, location_name, sensors,
		   email_sent, email_subject, telegram_sent, telegram_skipped,
		   telegram_chat_id, telegram_message_id, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, FALSE, COALESCE($12, NOW()))`,
		log.ID,
		log.UserID,
		log.LocationID,
		log.LocationName,
		sensorsJSON,
		log.EmailSent,
		log.EmailSubject,
		log.TelegramSent,
		log.TelegramSkipped,
		log.TelegramChatID,
		log.TelegramMessageID,
		createdAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert alert log", err)
	}
	return nil
}
