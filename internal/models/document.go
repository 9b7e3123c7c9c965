package models

import (
	"time"

	"github.com/google/uuid"
)

// Категории документов исполнителя. Для полной верификации требуется
// одобренный документ в каждой из трёх категорий.
const (
	DocumentCategoryIdentity     = "identity"
	DocumentCategoryBanking      = "banking"
	DocumentCategoryProfessional = "professional"
)

// RequiredDocumentCategories — закрытый список обязательных категорий.
var RequiredDocumentCategories = []string{
	DocumentCategoryIdentity,
	DocumentCategoryBanking,
	DocumentCategoryProfessional,
}

// Статусы документа.
const (
	DocumentStatusPending  = "pending"
	DocumentStatusApproved = "approved"
	DocumentStatusRejected = "rejected"
)

// ProviderDocument описывает документ исполнителя, проходящий проверку.
type ProviderDocument struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	ProviderID uuid.UUID  `db:"provider_id" json:"provider_id"`
	Category   string     `db:"category" json:"category"`
	FileURL    string     `db:"file_url" json:"file_url"`
	Status     string     `db:"status" json:"status"`
	ReviewedBy *uuid.UUID `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	Comment    *string    `db:"comment" json:"comment,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Category описывает категорию услуг.
type Category struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Slug      string    `db:"slug" json:"slug"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
