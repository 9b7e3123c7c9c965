package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы заявки на услугу.
const (
	RequestStatusPending              = "pending"
	RequestStatusAssignedToCallCenter = "assigned_to_call_center"
	RequestStatusCallingProvider      = "calling_provider"
	RequestStatusProviderContacted    = "provider_contacted"
	RequestStatusCallCenterApproved   = "call_center_approved"
	RequestStatusAccepted             = "accepted"
	RequestStatusInProgress           = "in_progress"
	RequestStatusCompleted            = "completed"
	RequestStatusDisputedAndRefunded  = "disputed_and_refunded"
	RequestStatusCancelled            = "cancelled"
)

// requestTransitions — таблица допустимых переходов заявки.
// Возврат из assigned_to_call_center в pending используется при переназначении
// зависших заявок на другого оператора.
var requestTransitions = map[string][]string{
	RequestStatusPending:              {RequestStatusAssignedToCallCenter, RequestStatusCancelled},
	RequestStatusAssignedToCallCenter: {RequestStatusCallingProvider, RequestStatusCallCenterApproved, RequestStatusPending, RequestStatusCancelled},
	RequestStatusCallingProvider:      {RequestStatusProviderContacted, RequestStatusCancelled},
	RequestStatusProviderContacted:    {RequestStatusCallCenterApproved, RequestStatusCancelled},
	RequestStatusCallCenterApproved:   {RequestStatusAccepted, RequestStatusCancelled},
	RequestStatusAccepted:             {RequestStatusInProgress, RequestStatusCancelled},
	RequestStatusInProgress:           {RequestStatusCompleted, RequestStatusDisputedAndRefunded},
	RequestStatusCompleted:            {},
	RequestStatusDisputedAndRefunded:  {},
	RequestStatusCancelled:            {},
}

// RequestTransitionAllowed сообщает, разрешён ли переход заявки из from в to.
func RequestTransitionAllowed(from, to string) bool {
	for _, next := range requestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RequestDisclosureAllowed сообщает, можно ли показывать исполнителю полный
// адрес и контакты клиента в данном статусе заявки.
func RequestDisclosureAllowed(status string) bool {
	switch status {
	case RequestStatusCallCenterApproved, RequestStatusAccepted,
		RequestStatusInProgress, RequestStatusCompleted,
		RequestStatusDisputedAndRefunded:
		return true
	}
	return false
}

// ServiceRequest описывает заявку: связь заказа, клиента и исполнителя,
// проходящую через одобрение колл-центра. До статуса call_center_approved
// исполнитель не видит адрес и контакты клиента.
type ServiceRequest struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	JobID       *uuid.UUID `db:"job_id" json:"job_id,omitempty"`
	ClientID    uuid.UUID  `db:"client_id" json:"client_id"`
	ProviderID  *uuid.UUID `db:"provider_id" json:"provider_id,omitempty"`
	MediatorID  *uuid.UUID `db:"mediator_id" json:"mediator_id,omitempty"`
	Status      string     `db:"status" json:"status"`
	AssignedAt  *time.Time `db:"assigned_at" json:"assigned_at,omitempty"`
	ContactedAt *time.Time `db:"contacted_at" json:"contacted_at,omitempty"`
	ApprovedAt  *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
