package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы сметы. Статус производен от пройденных этапов одобрения и
// отражает самый поздний из них.
const (
	QuoteStatusPending                 = "pending"
	QuoteStatusPriceApproved           = "price_approved"
	QuoteStatusTaskReviewed            = "task_reviewed"
	QuoteStatusCustomerDetailsReleased = "customer_details_released"
	QuoteStatusExpired                 = "expired"
)

// TaskQuote описывает смету исполнителя по заказу. Три этапа одобрения
// проходят строго по порядку: цена, объём работ, раскрытие контактов.
type TaskQuote struct {
	ID         uuid.UUID `db:"id" json:"id"`
	JobID      uuid.UUID `db:"job_id" json:"job_id"`
	ProviderID uuid.UUID `db:"provider_id" json:"provider_id"`
	Amount     float64   `db:"amount" json:"amount"`
	Message    string    `db:"message" json:"message"`

	PriceApproved   bool       `db:"price_approved" json:"price_approved"`
	PriceApprovedAt *time.Time `db:"price_approved_at" json:"price_approved_at,omitempty"`
	PriceApprovedBy *uuid.UUID `db:"price_approved_by" json:"price_approved_by,omitempty"`

	TaskReviewed   bool       `db:"task_reviewed" json:"task_reviewed"`
	TaskReviewedAt *time.Time `db:"task_reviewed_at" json:"task_reviewed_at,omitempty"`
	TaskReviewedBy *uuid.UUID `db:"task_reviewed_by" json:"task_reviewed_by,omitempty"`

	CustomerDetailsReleased   bool       `db:"customer_details_released" json:"customer_details_released"`
	CustomerDetailsReleasedAt *time.Time `db:"customer_details_released_at" json:"customer_details_released_at,omitempty"`
	CustomerDetailsReleasedBy *uuid.UUID `db:"customer_details_released_by" json:"customer_details_released_by,omitempty"`

	// Дедлайн начала работ: выставляется при раскрытии контактов,
	// просроченные сметы переводятся в expired фоновым обходом.
	WorkStartDeadline *time.Time `db:"work_start_deadline" json:"work_start_deadline,omitempty"`

	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DeriveStatus возвращает статус, соответствующий пройденным этапам.
func (q *TaskQuote) DeriveStatus() string {
	switch {
	case q.CustomerDetailsReleased:
		return QuoteStatusCustomerDetailsReleased
	case q.TaskReviewed:
		return QuoteStatusTaskReviewed
	case q.PriceApproved:
		return QuoteStatusPriceApproved
	default:
		return QuoteStatusPending
	}
}

// GatesConsistent проверяет инвариант порядка этапов: более поздний этап не
// может быть пройден раньше предыдущего.
func (q *TaskQuote) GatesConsistent() bool {
	if q.TaskReviewed && !q.PriceApproved {
		return false
	}
	if q.CustomerDetailsReleased && !q.TaskReviewed {
		return false
	}
	return true
}
