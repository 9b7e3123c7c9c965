package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/uslugi-backend/internal/models"
)

// Ошибки уровня репозитория смет.
var (
	ErrQuoteNotFound = errors.New("quote not found")
	ErrQuoteExists   = errors.New("quote already exists for this job and provider")
)

// QuoteRepository отвечает за работу со сметами.
type QuoteRepository struct {
	db *sqlx.DB
}

// NewQuoteRepository создаёт новый экземпляр.
func NewQuoteRepository(db *sqlx.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

// Create сохраняет смету. Повторная смета того же исполнителя по тому же
// заказу отклоняется уникальным индексом.
func (r *QuoteRepository) Create(ctx context.Context, quote *models.TaskQuote) error {
	query := `
		INSERT INTO task_quotes (job_id, provider_id, amount, message, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		quote.JobID, quote.ProviderID, quote.Amount, quote.Message, quote.Status,
	).Scan(&quote.ID, &quote.CreatedAt, &quote.UpdatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrQuoteExists
		}
		return fmt.Errorf("quote repository: create %w", err)
	}
	return nil
}

// GetByID возвращает смету по идентификатору.
func (r *QuoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TaskQuote, error) {
	var quote models.TaskQuote
	if err := r.db.GetContext(ctx, &quote, `SELECT * FROM task_quotes WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("quote repository: get by id %w", err)
	}
	return &quote, nil
}

// UpdateGates сохраняет пройденные этапы одобрения, производный статус и
// дедлайн начала работ.
func (r *QuoteRepository) UpdateGates(ctx context.Context, quote *models.TaskQuote) error {
	query := `
		UPDATE task_quotes
		SET price_approved = $2, price_approved_at = $3, price_approved_by = $4,
			task_reviewed = $5, task_reviewed_at = $6, task_reviewed_by = $7,
			customer_details_released = $8, customer_details_released_at = $9, customer_details_released_by = $10,
			work_start_deadline = $11, status = $12, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		quote.ID,
		quote.PriceApproved, quote.PriceApprovedAt, quote.PriceApprovedBy,
		quote.TaskReviewed, quote.TaskReviewedAt, quote.TaskReviewedBy,
		quote.CustomerDetailsReleased, quote.CustomerDetailsReleasedAt, quote.CustomerDetailsReleasedBy,
		quote.WorkStartDeadline, quote.Status,
	).Scan(&quote.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrQuoteNotFound
		}
		return fmt.Errorf("quote repository: update gates %w", err)
	}
	return nil
}

// ListByJob возвращает сметы по заказу.
func (r *QuoteRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.TaskQuote, error) {
	var quotes []models.TaskQuote
	query := `SELECT * FROM task_quotes WHERE job_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &quotes, query, jobID); err != nil {
		return nil, fmt.Errorf("quote repository: list by job %w", err)
	}
	return quotes, nil
}

// ListByProvider возвращает сметы исполнителя.
func (r *QuoteRepository) ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.TaskQuote, error) {
	var quotes []models.TaskQuote
	query := `SELECT * FROM task_quotes WHERE provider_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &quotes, query, providerID, limit, offset); err != nil {
		return nil, fmt.Errorf("quote repository: list by provider %w", err)
	}
	return quotes, nil
}

// ListReleasedOverdue возвращает сметы с раскрытыми контактами, по которым
// работа не началась до дедлайна. Их забирает фоновый обход.
func (r *QuoteRepository) ListReleasedOverdue(ctx context.Context, now time.Time) ([]models.TaskQuote, error) {
	var quotes []models.TaskQuote
	query := `
		SELECT * FROM task_quotes
		WHERE status = $1 AND work_start_deadline IS NOT NULL AND work_start_deadline < $2
	`
	if err := r.db.SelectContext(ctx, &quotes, query, models.QuoteStatusCustomerDetailsReleased, now); err != nil {
		return nil, fmt.Errorf("quote repository: list released overdue %w", err)
	}
	return quotes, nil
}

// MarkExpired переводит просроченную смету в expired, если статус не успел
// измениться.
func (r *QuoteRepository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE task_quotes SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`,
		id, models.QuoteStatusExpired, models.QuoteStatusCustomerDetailsReleased)
	if err != nil {
		return fmt.Errorf("quote repository: mark expired %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("quote repository: mark expired rows affected %w", err)
	}
	if affected == 0 {
		return ErrQuoteNotFound
	}
	return nil
}
