package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/uslugi-backend/internal/models"
)

// Ошибки уровня репозитория заявок.
var (
	ErrRequestNotFound    = errors.New("service request not found")
	ErrNoActiveMediator   = errors.New("no active mediator available")
	ErrRequestStatusStale = errors.New("service request status changed concurrently")
)

// RequestRepository отвечает за работу с заявками на услуги.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository создаёт новый экземпляр.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create сохраняет заявку.
func (r *RequestRepository) Create(ctx context.Context, request *models.ServiceRequest) error {
	query := `
		INSERT INTO service_requests (job_id, client_id, provider_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		request.JobID, request.ClientID, request.ProviderID, request.Status,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt); err != nil {
		return fmt.Errorf("request repository: create %w", err)
	}
	return nil
}

// GetByID возвращает заявку по идентификатору.
func (r *RequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error) {
	var request models.ServiceRequest
	if err := r.db.GetContext(ctx, &request, `SELECT * FROM service_requests WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("request repository: get by id %w", err)
	}
	return &request, nil
}

// AssignMediator атомарно выбирает наименее загруженного активного оператора
// колл-центра и закрепляет за ним заявку. Выбор и закрепление выполняются
// одним UPDATE, поэтому две конкурирующие заявки не зависнут на одном
// «первом свободном» операторе без учёта нагрузки.
func (r *RequestRepository) AssignMediator(ctx context.Context, requestID uuid.UUID) (*models.ServiceRequest, error) {
	query := `
		UPDATE service_requests
		SET mediator_id = (
			SELECT u.id
			FROM users u
			WHERE u.role = $3 AND u.is_active = TRUE
			ORDER BY (
				SELECT COUNT(*)
				FROM service_requests sr
				WHERE sr.mediator_id = u.id
				  AND sr.status IN ($4, $5, $6)
			) ASC, u.created_at ASC
			LIMIT 1
		),
		status = $2,
		assigned_at = NOW(),
		updated_at = NOW()
		WHERE id = $1 AND status = $7
		RETURNING *
	`
	var request models.ServiceRequest
	err := r.db.GetContext(ctx, &request, query,
		requestID,
		models.RequestStatusAssignedToCallCenter,
		models.RoleMediator,
		models.RequestStatusAssignedToCallCenter,
		models.RequestStatusCallingProvider,
		models.RequestStatusProviderContacted,
		models.RequestStatusPending,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestStatusStale
		}
		return nil, fmt.Errorf("request repository: assign mediator %w", err)
	}
	if request.MediatorID == nil {
		return nil, ErrNoActiveMediator
	}
	return &request, nil
}

// UpdateStatus переводит заявку в новый статус с проверкой, что текущий
// статус не изменился конкурентно. Отметки времени контакта/одобрения
// проставляются по целевому статусу.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	query := `
		UPDATE service_requests
		SET status = $3,
			contacted_at = CASE WHEN $3 = $4 THEN NOW() ELSE contacted_at END,
			approved_at  = CASE WHEN $3 = $5 THEN NOW() ELSE approved_at END,
			updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, from, to,
		models.RequestStatusProviderContacted, models.RequestStatusCallCenterApproved)
	if err != nil {
		return fmt.Errorf("request repository: update status %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("request repository: update status rows affected %w", err)
	}
	if affected == 0 {
		return ErrRequestStatusStale
	}
	return nil
}

// Requeue возвращает зависшую заявку в pending и снимает оператора.
func (r *RequestRepository) Requeue(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE service_requests
		SET status = $2, mediator_id = NULL, assigned_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`
	result, err := r.db.ExecContext(ctx, query, id,
		models.RequestStatusPending, models.RequestStatusAssignedToCallCenter)
	if err != nil {
		return fmt.Errorf("request repository: requeue %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("request repository: requeue rows affected %w", err)
	}
	if affected == 0 {
		return ErrRequestStatusStale
	}
	return nil
}

// ListByMediator возвращает заявки, закреплённые за оператором.
func (r *RequestRepository) ListByMediator(ctx context.Context, mediatorID uuid.UUID, limit, offset int) ([]models.ServiceRequest, error) {
	var requests []models.ServiceRequest
	query := `SELECT * FROM service_requests WHERE mediator_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &requests, query, mediatorID, limit, offset); err != nil {
		return nil, fmt.Errorf("request repository: list by mediator %w", err)
	}
	return requests, nil
}

// ListByParticipant возвращает заявки, где пользователь — клиент или исполнитель.
func (r *RequestRepository) ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ServiceRequest, error) {
	var requests []models.ServiceRequest
	query := `
		SELECT * FROM service_requests
		WHERE client_id = $1 OR provider_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &requests, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("request repository: list by participant %w", err)
	}
	return requests, nil
}

// ListStaleAssigned возвращает заявки, висящие на операторе дольше заданного
// срока без движения. Их переназначает фоновый обход.
func (r *RequestRepository) ListStaleAssigned(ctx context.Context, olderThan time.Time) ([]models.ServiceRequest, error) {
	var requests []models.ServiceRequest
	query := `SELECT * FROM service_requests WHERE status = $1 AND assigned_at < $2`
	if err := r.db.SelectContext(ctx, &requests, query, models.RequestStatusAssignedToCallCenter, olderThan); err != nil {
		return nil, fmt.Errorf("request repository: list stale assigned %w", err)
	}
	return requests, nil
}
