package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы заказа.
const (
	JobStatusOpen       = "open"
	JobStatusAssigned   = "assigned"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusCancelled  = "cancelled"
)

// Виды заказов: обычная услуга и наряд-заказ. Вид определяет радиус подбора
// исполнителей.
const (
	JobKindGeneral   = "general"
	JobKindWorkOrder = "work_order"
)

// jobTransitions — таблица допустимых переходов статуса заказа.
// Статус движется только вперёд, отмена возможна до завершения работ.
var jobTransitions = map[string][]string{
	JobStatusOpen:       {JobStatusAssigned, JobStatusCancelled},
	JobStatusAssigned:   {JobStatusInProgress, JobStatusCancelled},
	JobStatusInProgress: {JobStatusCompleted, JobStatusCancelled},
	JobStatusCompleted:  {},
	JobStatusCancelled:  {},
}

// JobTransitionAllowed сообщает, разрешён ли переход заказа из from в to.
func JobTransitionAllowed(from, to string) bool {
	for _, next := range jobTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Job описывает заказ клиента на услугу. Адрес и координаты — приватные
// данные: в уведомления исполнителям до одобрения попадает только округлённое
// расстояние.
type Job struct {
	ID               uuid.UUID `db:"id" json:"id"`
	ClientID         uuid.UUID `db:"client_id" json:"client_id"`
	CategoryID       uuid.UUID `db:"category_id" json:"category_id"`
	Kind             string    `db:"kind" json:"kind"`
	Title            string    `db:"title" json:"title"`
	Description      string    `db:"description" json:"description"`
	Address          string    `db:"address" json:"address,omitempty"`
	Latitude         float64   `db:"latitude" json:"latitude,omitempty"`
	Longitude        float64   `db:"longitude" json:"longitude,omitempty"`
	Budget           float64   `db:"budget" json:"budget"`
	FlexibleSchedule bool      `db:"flexible_schedule" json:"flexible_schedule"`
	Status           string    `db:"status" json:"status"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// PublicView возвращает копию заказа без адреса и координат.
// Используется во всех ответах исполнителям до раскрытия данных.
func (j Job) PublicView() Job {
	j.Address = ""
	j.Latitude = 0
	j.Longitude = 0
	return j
}
