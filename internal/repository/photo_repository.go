package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/uslugi-backend/internal/models"
)

// PhotoRepository отвечает за фотоподтверждения выполненных работ.
// Таблица только пополняется.
type PhotoRepository struct {
	db *sqlx.DB
}

// NewPhotoRepository создаёт новый экземпляр.
func NewPhotoRepository(db *sqlx.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// CreateBatch сохраняет пачку фотоподтверждений одной сдачи работы.
func (r *PhotoRepository) CreateBatch(ctx context.Context, photos []models.WorkCompletionPhoto) error {
	query := `
		INSERT INTO work_completion_photos (service_request_id, provider_id, photo_url, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	for i := range photos {
		if err := r.db.QueryRowxContext(ctx, query,
			photos[i].ServiceRequestID, photos[i].ProviderID, photos[i].PhotoURL, photos[i].Description,
		).Scan(&photos[i].ID, &photos[i].CreatedAt); err != nil {
			return fmt.Errorf("photo repository: create batch %w", err)
		}
	}
	return nil
}

// ListByRequest возвращает фотоподтверждения заявки.
func (r *PhotoRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.WorkCompletionPhoto, error) {
	var photos []models.WorkCompletionPhoto
	query := `SELECT * FROM work_completion_photos WHERE service_request_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &photos, query, requestID); err != nil {
		return nil, fmt.Errorf("photo repository: list by request %w", err)
	}
	return photos, nil
}
