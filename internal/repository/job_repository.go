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

// Ошибки уровня репозитория заказов.
var ErrJobNotFound = errors.New("job not found")

// JobRepository отвечает за работу с заказами.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository создаёт новый экземпляр.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create сохраняет заказ.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (client_id, category_id, kind, title, description, address, latitude, longitude, budget, flexible_schedule, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		job.ClientID, job.CategoryID, job.Kind, job.Title, job.Description,
		job.Address, job.Latitude, job.Longitude, job.Budget, job.FlexibleSchedule, job.Status,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return fmt.Errorf("job repository: create %w", err)
	}
	return nil
}

// GetByID возвращает заказ по идентификатору.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := r.db.GetContext(ctx, &job, `SELECT * FROM jobs WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("job repository: get by id %w", err)
	}
	return &job, nil
}

// Update сохраняет изменяемые поля заказа.
func (r *JobRepository) Update(ctx context.Context, job *models.Job) error {
	query := `
		UPDATE jobs
		SET title = $2, description = $3, budget = $4, flexible_schedule = $5, status = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		job.ID, job.Title, job.Description, job.Budget, job.FlexibleSchedule, job.Status,
	).Scan(&job.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrJobNotFound
		}
		return fmt.Errorf("job repository: update %w", err)
	}
	return nil
}

// UpdateStatus переводит заказ в новый статус при условии, что текущий статус
// не изменился с момента проверки перехода.
func (r *JobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return fmt.Errorf("job repository: update status %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("job repository: update status rows affected %w", err)
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// ListByClient возвращает заказы клиента.
func (r *JobRepository) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Job, error) {
	var jobs []models.Job
	query := `SELECT * FROM jobs WHERE client_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &jobs, query, clientID, limit, offset); err != nil {
		return nil, fmt.Errorf("job repository: list by client %w", err)
	}
	return jobs, nil
}

// ListOpenByCategory возвращает открытые заказы категории.
func (r *JobRepository) ListOpenByCategory(ctx context.Context, categoryID uuid.UUID, limit, offset int) ([]models.Job, error) {
	var jobs []models.Job
	query := `SELECT * FROM jobs WHERE category_id = $1 AND status = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	if err := r.db.SelectContext(ctx, &jobs, query, categoryID, models.JobStatusOpen, limit, offset); err != nil {
		return nil, fmt.Errorf("job repository: list open by category %w", err)
	}
	return jobs, nil
}
