package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/uslugi-backend/internal/models"
)

// Ошибки уровня репозитория платежей.
var (
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrPaymentExists       = errors.New("payment already exists for this service request")
	ErrPaymentStatusStale  = errors.New("payment status changed concurrently")
	ErrBankAccountNotFound = errors.New("bank account not found")
)

// PaymentRepository отвечает за escrow-платежи и счета исполнителей.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository создаёт новый экземпляр.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create сохраняет новый платёж. Гонку двойного создания закрывает
// уникальный индекс по service_request_id: второй INSERT получает
// ErrPaymentExists, а не дублирующую запись.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.EscrowPayment) error {
	query := `
		INSERT INTO escrow_payments (service_request_id, client_id, provider_id, intent_ref, amount, platform_fee, tax, total_amount, payout_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		payment.ServiceRequestID, payment.ClientID, payment.ProviderID, payment.IntentRef,
		payment.Amount, payment.PlatformFee, payment.Tax, payment.TotalAmount, payment.PayoutAmount,
		payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrPaymentExists
		}
		return fmt.Errorf("payment repository: create %w", err)
	}
	return nil
}

// GetByID возвращает платёж по идентификатору.
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowPayment, error) {
	var payment models.EscrowPayment
	if err := r.db.GetContext(ctx, &payment, `SELECT * FROM escrow_payments WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment repository: get by id %w", err)
	}
	return &payment, nil
}

// GetByRequestID возвращает платёж по заявке.
func (r *PaymentRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*models.EscrowPayment, error) {
	var payment models.EscrowPayment
	if err := r.db.GetContext(ctx, &payment, `SELECT * FROM escrow_payments WHERE service_request_id = $1`, requestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment repository: get by request id %w", err)
	}
	return &payment, nil
}

// UpdateStatus переводит платёж из from в to, проставляя отметку времени
// соответствующего шага. Денежные поля не трогаются. Если статус изменился
// конкурентно, возвращается ErrPaymentStatusStale.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, reason *string) error {
	query := `
		UPDATE escrow_payments
		SET status = $3,
			rejection_reason = COALESCE($4, rejection_reason),
			held_at      = CASE WHEN $3 = $5 THEN NOW() ELSE held_at END,
			submitted_at = CASE WHEN $3 = $6 THEN NOW() ELSE submitted_at END,
			resolved_at  = CASE WHEN $3 IN ($7, $8) THEN NOW() ELSE resolved_at END,
			updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, from, to, reason,
		models.PaymentStatusHeld, models.PaymentStatusAwaitingApproval,
		models.PaymentStatusReleased, models.PaymentStatusRefunded)
	if err != nil {
		return fmt.Errorf("payment repository: update status %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("payment repository: update status rows affected %w", err)
	}
	if affected == 0 {
		return ErrPaymentStatusStale
	}
	return nil
}

// ListByParticipant возвращает платежи, где пользователь — клиент или исполнитель.
func (r *PaymentRepository) ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.EscrowPayment, error) {
	var payments []models.EscrowPayment
	query := `
		SELECT * FROM escrow_payments
		WHERE client_id = $1 OR provider_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &payments, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("payment repository: list by participant %w", err)
	}
	return payments, nil
}

// ListAwaitingApproval возвращает платежи, ожидающие решения проверяющего.
func (r *PaymentRepository) ListAwaitingApproval(ctx context.Context, limit, offset int) ([]models.EscrowPayment, error) {
	var payments []models.EscrowPayment
	query := `SELECT * FROM escrow_payments WHERE status = $1 ORDER BY submitted_at LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &payments, query, models.PaymentStatusAwaitingApproval, limit, offset); err != nil {
		return nil, fmt.Errorf("payment repository: list awaiting approval %w", err)
	}
	return payments, nil
}

// UpsertBankAccount создаёт или обновляет счёт исполнителя. На исполнителя
// допускается ровно один счёт.
func (r *PaymentRepository) UpsertBankAccount(ctx context.Context, account *models.ProviderBankAccount) error {
	query := `
		INSERT INTO provider_bank_accounts (provider_id, account_ref, masked_account, verified)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider_id) DO UPDATE SET
			account_ref = EXCLUDED.account_ref,
			masked_account = EXCLUDED.masked_account,
			verified = EXCLUDED.verified,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		account.ProviderID, account.AccountRef, account.MaskedAccount, account.Verified,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt); err != nil {
		return fmt.Errorf("payment repository: upsert bank account %w", err)
	}
	return nil
}

// GetBankAccount возвращает счёт исполнителя.
func (r *PaymentRepository) GetBankAccount(ctx context.Context, providerID uuid.UUID) (*models.ProviderBankAccount, error) {
	var account models.ProviderBankAccount
	if err := r.db.GetContext(ctx, &account, `SELECT * FROM provider_bank_accounts WHERE provider_id = $1`, providerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBankAccountNotFound
		}
		return nil, fmt.Errorf("payment repository: get bank account %w", err)
	}
	return &account, nil
}
