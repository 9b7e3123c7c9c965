package models

import (
	"time"

	"github.com/google/uuid"
)

// Роли пользователей платформы.
const (
	RoleClient   = "client"
	RoleProvider = "provider"
	RoleMediator = "mediator"
	RoleApprover = "approver"
)

// User описывает сущность пользователя платформы.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         string     `db:"role" json:"role"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// ValidRole проверяет, что роль входит в закрытый список.
func ValidRole(role string) bool {
	switch role {
	case RoleClient, RoleProvider, RoleMediator, RoleApprover:
		return true
	}
	return false
}

// Profile описывает профиль пользователя. Для исполнителя хранит категорию
// услуг и координаты для подбора заказов; адрес и телефон — приватные данные,
// которые раскрываются контрагенту только после прохождения этапа одобрения.
type Profile struct {
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	DisplayName string     `db:"display_name" json:"display_name"`
	Phone       *string    `db:"phone" json:"phone,omitempty"`
	Address     *string    `db:"address" json:"address,omitempty"`
	CategoryID  *uuid.UUID `db:"category_id" json:"category_id,omitempty"`
	Latitude    *float64   `db:"latitude" json:"latitude,omitempty"`
	Longitude   *float64   `db:"longitude" json:"longitude,omitempty"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Session представляет сохранённую сессию пользователя.
type Session struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	RefreshToken string    `db:"refresh_token" json:"refresh_token"`
	UserAgent    *string   `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress    *string   `db:"ip_address" json:"ip_address,omitempty"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ContactDetails — пакет контактных данных клиента, который прикладывается к
// уведомлению исполнителю после одобрения колл-центром или раскрытия деталей
// по смете. До этого момента эти поля не попадают ни в один ответ исполнителю.
type ContactDetails struct {
	Name    string  `json:"name"`
	Phone   *string `json:"phone,omitempty"`
	Email   string  `json:"email"`
	Address *string `json:"address,omitempty"`
}
