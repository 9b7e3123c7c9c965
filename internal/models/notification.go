package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Типы уведомлений.
const (
	NotificationTypeJobMatched      = "job_matched"
	NotificationTypeQuoteSubmitted  = "quote_submitted"
	NotificationTypePriceApproved   = "price_approved"
	NotificationTypeTaskReviewed    = "task_reviewed"
	NotificationTypeDetailsReleased = "customer_details_released"
	NotificationTypeQuoteExpired    = "quote_expired"
	NotificationTypeRequestAssigned = "request_assigned"
	NotificationTypeRequestApproved = "request_approved"
	NotificationTypePaymentHeld     = "payment_held"
	NotificationTypeWorkSubmitted   = "work_submitted"
	NotificationTypePaymentReleased = "payment_released"
	NotificationTypePaymentRefunded = "payment_refunded"
)

// Notification описывает персистентное уведомление пользователя.
// Запись создаётся до попытки realtime-доставки и мутирует только флаг
// прочтения.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Type      string          `db:"type" json:"type"`
	Title     string          `db:"title" json:"title"`
	Message   string          `db:"message" json:"message"`
	Payload   json.RawMessage `db:"payload" json:"payload,omitempty"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
