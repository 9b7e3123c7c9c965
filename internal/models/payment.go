package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы escrow-платежа.
const (
	PaymentStatusPending          = "pending"
	PaymentStatusHeld             = "held"
	PaymentStatusAwaitingApproval = "awaiting_approval"
	PaymentStatusReleased         = "released"
	PaymentStatusRefunded         = "refunded"
	PaymentStatusFailed           = "failed"
)

// paymentTransitions — таблица допустимых переходов платежа. Деньги движутся
// строго вперёд; единственная развилка — решение проверяющего.
var paymentTransitions = map[string][]string{
	PaymentStatusPending:          {PaymentStatusHeld, PaymentStatusFailed},
	PaymentStatusHeld:             {PaymentStatusAwaitingApproval},
	PaymentStatusAwaitingApproval: {PaymentStatusReleased, PaymentStatusRefunded},
	PaymentStatusReleased:         {},
	PaymentStatusRefunded:         {},
	PaymentStatusFailed:           {},
}

// PaymentTransitionAllowed сообщает, разрешён ли переход платежа из from в to.
func PaymentTransitionAllowed(from, to string) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EscrowPayment описывает платёж по заявке. На одну заявку допускается ровно
// один платёж (уникальный индекс по service_request_id). Денежные поля
// неизменяемы после создания, мутируют только статус и отметки времени.
type EscrowPayment struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	ServiceRequestID uuid.UUID  `db:"service_request_id" json:"service_request_id"`
	ClientID         uuid.UUID  `db:"client_id" json:"client_id"`
	ProviderID       uuid.UUID  `db:"provider_id" json:"provider_id"`
	IntentRef        string     `db:"intent_ref" json:"intent_ref"`
	Amount           float64    `db:"amount" json:"amount"`
	PlatformFee      float64    `db:"platform_fee" json:"platform_fee"`
	Tax              float64    `db:"tax" json:"tax"`
	TotalAmount      float64    `db:"total_amount" json:"total_amount"`
	PayoutAmount     float64    `db:"payout_amount" json:"payout_amount"`
	Status           string     `db:"status" json:"status"`
	RejectionReason  *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	HeldAt           *time.Time `db:"held_at" json:"held_at,omitempty"`
	SubmittedAt      *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	ResolvedAt       *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// WorkCompletionPhoto — фотоподтверждение выполненных работ. Записи только
// добавляются, исполнитель прикладывает их при сдаче работы.
type WorkCompletionPhoto struct {
	ID               uuid.UUID `db:"id" json:"id"`
	ServiceRequestID uuid.UUID `db:"service_request_id" json:"service_request_id"`
	ProviderID       uuid.UUID `db:"provider_id" json:"provider_id"`
	PhotoURL         string    `db:"photo_url" json:"photo_url"`
	Description      *string   `db:"description" json:"description,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// ProviderBankAccount — счёт исполнителя для выплат. Один на исполнителя,
// обновляется на месте.
type ProviderBankAccount struct {
	ID            uuid.UUID `db:"id" json:"id"`
	ProviderID    uuid.UUID `db:"provider_id" json:"provider_id"`
	AccountRef    string    `db:"account_ref" json:"-"`
	MaskedAccount string    `db:"masked_account" json:"masked_account"`
	Verified      bool      `db:"verified" json:"verified"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
