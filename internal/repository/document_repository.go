package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/uslugi-backend/internal/models"
)

// ErrDocumentNotFound возвращается, когда документ не найден.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentRepository отвечает за документы верификации исполнителей.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository создаёт новый экземпляр.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create сохраняет документ на проверку.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.ProviderDocument) error {
	query := `
		INSERT INTO provider_documents (provider_id, category, file_url, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		doc.ProviderID, doc.Category, doc.FileURL, doc.Status,
	).Scan(&doc.ID, &doc.CreatedAt); err != nil {
		return fmt.Errorf("document repository: create %w", err)
	}
	return nil
}

// GetByID возвращает документ по идентификатору.
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ProviderDocument, error) {
	var doc models.ProviderDocument
	if err := r.db.GetContext(ctx, &doc, `SELECT * FROM provider_documents WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("document repository: get by id %w", err)
	}
	return &doc, nil
}

// ListByProvider возвращает документы исполнителя.
func (r *DocumentRepository) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]models.ProviderDocument, error) {
	var docs []models.ProviderDocument
	query := `SELECT * FROM provider_documents WHERE provider_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &docs, query, providerID); err != nil {
		return nil, fmt.Errorf("document repository: list by provider %w", err)
	}
	return docs, nil
}

// Review фиксирует решение проверяющего по документу.
func (r *DocumentRepository) Review(ctx context.Context, id uuid.UUID, status string, reviewerID uuid.UUID, comment *string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE provider_documents
		SET status = $2, reviewed_by = $3, reviewed_at = NOW(), comment = $4
		WHERE id = $1
	`, id, status, reviewerID, comment)
	if err != nil {
		return fmt.Errorf("document repository: review %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("document repository: review rows affected %w", err)
	}
	if affected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// CountApprovedCategories возвращает число обязательных категорий, в которых
// у исполнителя есть одобренный документ.
func (r *DocumentRepository) CountApprovedCategories(ctx context.Context, providerID uuid.UUID) (int, error) {
	var count int
	query := `
		SELECT COUNT(DISTINCT category)
		FROM provider_documents
		WHERE provider_id = $1 AND status = $2
	`
	if err := r.db.GetContext(ctx, &count, query, providerID, models.DocumentStatusApproved); err != nil {
		return 0, fmt.Errorf("document repository: count approved categories %w", err)
	}
	return count, nil
}
