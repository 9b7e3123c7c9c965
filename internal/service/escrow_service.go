package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/uslugi-backend/internal/events"
	"github.com/ignatzorin/uslugi-backend/internal/logger"
	"github.com/ignatzorin/uslugi-backend/internal/models"
	"github.com/ignatzorin/uslugi-backend/internal/payments"
	"github.com/ignatzorin/uslugi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/uslugi-backend/internal/repository"
	"github.com/ignatzorin/uslugi-backend/internal/validation"
)

// PaymentRepository описывает зависимости сервиса от хранилища платежей.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.EscrowPayment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowPayment, error)
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*models.EscrowPayment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, reason *string) error
	ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.EscrowPayment, error)
	ListAwaitingApproval(ctx context.Context, limit, offset int) ([]models.EscrowPayment, error)
	UpsertBankAccount(ctx context.Context, account *models.ProviderBankAccount) error
	GetBankAccount(ctx context.Context, providerID uuid.UUID) (*models.ProviderBankAccount, error)
}

// PhotoRepository описывает хранилище фотоподтверждений.
type PhotoRepository interface {
	CreateBatch(ctx context.Context, photos []models.WorkCompletionPhoto) error
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.WorkCompletionPhoto, error)
}

// EscrowService ведёт платёж по заявке: удержание средств, сдача работы,
// решение проверяющего. Любой сбой процессинга прерывает операцию до
// локальных изменений: статус платежа меняется только после успешного вызова
// внешней системы.
type EscrowService struct {
	payments  PaymentRepository
	requests  RequestRepository
	photos    PhotoRepository
	users     UserDirectory
	processor payments.Processor
	publisher events.Publisher

	platformFeeRate float64
	taxRate         float64
}

// SubmitWorkInput — данные сдачи работы исполнителем.
type SubmitWorkInput struct {
	PhotoURLs   []string
	Description *string
}

// NewEscrowService создаёт сервис escrow-платежей.
func NewEscrowService(paymentsRepo PaymentRepository, requests RequestRepository, photos PhotoRepository, users UserDirectory, processor payments.Processor, publisher events.Publisher, platformFeeRate, taxRate float64) *EscrowService {
	return &EscrowService{
		payments:        paymentsRepo,
		requests:        requests,
		photos:          photos,
		users:           users,
		processor:       processor,
		publisher:       publisher,
		platformFeeRate: platformFeeRate,
		taxRate:         taxRate,
	}
}

// CreatePayment открывает платёж по принятой заявке: авторизует сумму у
// процессинга и сохраняет запись. Повторный платёж по той же заявке
// отклоняется.
func (s *EscrowService) CreatePayment(ctx context.Context, clientID, requestID uuid.UUID, amount float64) (*models.EscrowPayment, error) {
	if err := validation.ValidateBudget(amount); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return nil, apperror.ErrRequestNotFound
		}
		return nil, err
	}

	if request.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}
	if request.Status != models.RequestStatusAccepted {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "платёж открывается только по принятой заявке")
	}
	if request.ProviderID == nil {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "по заявке не закреплён исполнитель")
	}

	// Проверяем дубль до обращения к процессингу, чтобы не плодить висящие
	// авторизации. Гонку всё равно закрывает уникальный индекс.
	if _, err := s.payments.GetByRequestID(ctx, requestID); err == nil {
		return nil, apperror.New(apperror.ErrCodeConflict, "платёж по заявке уже существует")
	} else if !errors.Is(err, repository.ErrPaymentNotFound) {
		return nil, err
	}

	fees := CalculateFees(amount, s.platformFeeRate, s.taxRate)

	intentRef, err := s.processor.Authorize(ctx, fees.TotalAmount, map[string]string{
		"service_request_id": requestID.String(),
		"client_id":          clientID.String(),
	})
	if err != nil {
		return nil, mapProcessorErr(err)
	}

	payment := &models.EscrowPayment{
		ServiceRequestID: requestID,
		ClientID:         clientID,
		ProviderID:       *request.ProviderID,
		IntentRef:        intentRef,
		Amount:           fees.Amount,
		PlatformFee:      fees.PlatformFee,
		Tax:              fees.Tax,
		TotalAmount:      fees.TotalAmount,
		PayoutAmount:     fees.PayoutAmount,
		Status:           models.PaymentStatusPending,
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrPaymentExists) {
			return nil, apperror.New(apperror.ErrCodeConflict, "платёж по заявке уже существует")
		}
		return nil, err
	}

	return payment, nil
}

// ConfirmPayment подтверждает авторизацию и переводит средства на удержание.
// Заявка при этом переходит в работу. Сбой процессинга оставляет платёж в
// pending без каких-либо локальных изменений.
func (s *EscrowService) ConfirmPayment(ctx context.Context, clientID, paymentID uuid.UUID) (*models.EscrowPayment, error) {
	payment, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}
	if payment.Status != models.PaymentStatusPending {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "платёж нельзя подтвердить из статуса «"+payment.Status+"»")
	}

	if err := s.processor.Confirm(ctx, payment.IntentRef); err != nil {
		return nil, mapProcessorErr(err)
	}

	if err := s.payments.UpdateStatus(ctx, payment.ID, models.PaymentStatusPending, models.PaymentStatusHeld, nil); err != nil {
		return nil, mapPaymentStatusErr(err)
	}
	payment.Status = models.PaymentStatusHeld

	if err := s.requests.UpdateStatus(ctx, payment.ServiceRequestID, models.RequestStatusAccepted, models.RequestStatusInProgress); err != nil {
		// Платёж удержан, заявку двинуть не удалось: логируем, не откатываем
		// деньги из-за конкурентного перехода заявки.
		if logger.Log != nil {
			logger.Log.Errorf("escrow service: заявка %s не переведена в работу: %v", payment.ServiceRequestID, err)
		}
	}

	s.publisher.Publish(ctx, events.Event{
		Recipient: payment.ProviderID,
		Type:      models.NotificationTypePaymentHeld,
		Title:     "Средства зарезервированы",
		Message:   "Клиент внёс оплату, можно приступать к работе",
		Payload: map[string]interface{}{
			"payment_id":    payment.ID.String(),
			"request_id":    payment.ServiceRequestID.String(),
			"payout_amount": payment.PayoutAmount,
		},
	})

	return payment, nil
}

// SubmitWork — сдача работы исполнителем с фотоподтверждениями. Платёж
// переходит в ожидание решения проверяющего, всем активным проверяющим
// уходит уведомление.
func (s *EscrowService) SubmitWork(ctx context.Context, providerID, paymentID uuid.UUID, in SubmitWorkInput) (*models.EscrowPayment, error) {
	if len(in.PhotoURLs) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "нужно приложить хотя бы одно фото выполненных работ")
	}
	for _, link := range in.PhotoURLs {
		if err := validation.ValidatePhotoURL(link); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}
	if in.Description != nil {
		if err := validation.ValidateLength("описание работ", *in.Description, 0, validation.MaxPhotoDescriptionLength); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}

	payment, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.ProviderID != providerID {
		return nil, apperror.ErrForbidden
	}
	if payment.Status != models.PaymentStatusHeld {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "сдать работу можно только по удержанному платежу")
	}

	photos := make([]models.WorkCompletionPhoto, 0, len(in.PhotoURLs))
	for _, link := range in.PhotoURLs {
		photos = append(photos, models.WorkCompletionPhoto{
			ServiceRequestID: payment.ServiceRequestID,
			ProviderID:       providerID,
			PhotoURL:         link,
			Description:      in.Description,
		})
	}
	if err := s.photos.CreateBatch(ctx, photos); err != nil {
		return nil, err
	}

	if err := s.payments.UpdateStatus(ctx, payment.ID, models.PaymentStatusHeld, models.PaymentStatusAwaitingApproval, nil); err != nil {
		return nil, mapPaymentStatusErr(err)
	}
	payment.Status = models.PaymentStatusAwaitingApproval

	approvers, err := s.users.ListActiveByRole(ctx, models.RoleApprover)
	if err != nil {
		if logger.Log != nil {
			logger.Log.Errorf("escrow service: не удалось получить список проверяющих: %v", err)
		}
	}
	for _, approver := range approvers {
		s.publisher.Publish(ctx, events.Event{
			Recipient: approver.ID,
			Type:      models.NotificationTypeWorkSubmitted,
			Title:     "Работа сдана на проверку",
			Message:   "Исполнитель сдал работу, требуется решение",
			Payload: map[string]interface{}{
				"payment_id": payment.ID.String(),
				"request_id": payment.ServiceRequestID.String(),
			},
		})
	}

	return payment, nil
}

// ApprovePayment — решение проверяющего о выплате: перевод исполнителю и
// завершение заявки. Сбой перевода прерывает операцию, платёж остаётся в
// ожидании решения.
func (s *EscrowService) ApprovePayment(ctx context.Context, approverID, paymentID uuid.UUID) (*models.EscrowPayment, error) {
	payment, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status != models.PaymentStatusAwaitingApproval {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "платёж не ожидает решения")
	}

	account, err := s.payments.GetBankAccount(ctx, payment.ProviderID)
	if err != nil {
		if errors.Is(err, repository.ErrBankAccountNotFound) {
			return nil, apperror.New(apperror.ErrCodeStateConflict, "у исполнителя не указан счёт для выплаты")
		}
		return nil, err
	}

	if _, err := s.processor.Transfer(ctx, account.AccountRef, payment.PayoutAmount, map[string]string{
		"payment_id":  payment.ID.String(),
		"approved_by": approverID.String(),
	}); err != nil {
		return nil, mapProcessorErr(err)
	}

	if err := s.payments.UpdateStatus(ctx, payment.ID, models.PaymentStatusAwaitingApproval, models.PaymentStatusReleased, nil); err != nil {
		return nil, mapPaymentStatusErr(err)
	}
	payment.Status = models.PaymentStatusReleased

	if err := s.requests.UpdateStatus(ctx, payment.ServiceRequestID, models.RequestStatusInProgress, models.RequestStatusCompleted); err != nil {
		if logger.Log != nil {
			logger.Log.Errorf("escrow service: заявка %s не переведена в completed: %v", payment.ServiceRequestID, err)
		}
	}

	s.publisher.Publish(ctx, events.Event{
		Recipient: payment.ProviderID,
		Type:      models.NotificationTypePaymentReleased,
		Title:     "Выплата отправлена",
		Message:   "Работа принята, выплата переведена на ваш счёт",
		Payload: map[string]interface{}{
			"payment_id":    payment.ID.String(),
			"payout_amount": payment.PayoutAmount,
		},
	})
	s.publisher.Publish(ctx, events.Event{
		Recipient: payment.ClientID,
		Type:      models.NotificationTypePaymentReleased,
		Title:     "Работа принята",
		Message:   "Проверяющий принял работу, заявка завершена",
		Payload: map[string]interface{}{
			"payment_id": payment.ID.String(),
			"request_id": payment.ServiceRequestID.String(),
		},
	})

	return payment, nil
}

// RejectPayment — решение проверяющего о возврате средств клиенту. Сбой
// возврата прерывает операцию.
func (s *EscrowService) RejectPayment(ctx context.Context, approverID, paymentID uuid.UUID, reason string) (*models.EscrowPayment, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "нужно указать причину отклонения")
	}

	payment, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status != models.PaymentStatusAwaitingApproval {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "платёж не ожидает решения")
	}

	if _, err := s.processor.Refund(ctx, payment.IntentRef, reason); err != nil {
		return nil, mapProcessorErr(err)
	}

	if err := s.payments.UpdateStatus(ctx, payment.ID, models.PaymentStatusAwaitingApproval, models.PaymentStatusRefunded, &reason); err != nil {
		return nil, mapPaymentStatusErr(err)
	}
	payment.Status = models.PaymentStatusRefunded
	payment.RejectionReason = &reason

	if err := s.requests.UpdateStatus(ctx, payment.ServiceRequestID, models.RequestStatusInProgress, models.RequestStatusDisputedAndRefunded); err != nil {
		if logger.Log != nil {
			logger.Log.Errorf("escrow service: заявка %s не переведена в disputed: %v", payment.ServiceRequestID, err)
		}
	}

	s.publisher.Publish(ctx, events.Event{
		Recipient: payment.ClientID,
		Type:      models.NotificationTypePaymentRefunded,
		Title:     "Средства возвращены",
		Message:   "Работа отклонена проверяющим, средства возвращены вам",
		Payload: map[string]interface{}{
			"payment_id": payment.ID.String(),
			"reason":     reason,
		},
	})
	s.publisher.Publish(ctx, events.Event{
		Recipient: payment.ProviderID,
		Type:      models.NotificationTypePaymentRefunded,
		Title:     "Работа отклонена",
		Message:   "Проверяющий отклонил работу: " + reason,
		Payload: map[string]interface{}{
			"payment_id": payment.ID.String(),
			"reason":     reason,
		},
	})

	return payment, nil
}

// GetPaymentForViewer возвращает платёж его участнику или проверяющему.
func (s *EscrowService) GetPaymentForViewer(ctx context.Context, paymentID, viewerID uuid.UUID, viewerRole string) (*models.EscrowPayment, error) {
	payment, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.ClientID != viewerID && payment.ProviderID != viewerID && viewerRole != models.RoleApprover {
		return nil, apperror.ErrForbidden
	}
	return payment, nil
}

// ListMyPayments возвращает платежи пользователя.
func (s *EscrowService) ListMyPayments(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.EscrowPayment, error) {
	limit, offset = normalizePage(limit, offset)
	return s.payments.ListByParticipant(ctx, userID, limit, offset)
}

// ListAwaitingApproval возвращает очередь платежей на решение.
func (s *EscrowService) ListAwaitingApproval(ctx context.Context, limit, offset int) ([]models.EscrowPayment, error) {
	limit, offset = normalizePage(limit, offset)
	return s.payments.ListAwaitingApproval(ctx, limit, offset)
}

// ListWorkPhotos возвращает фотоподтверждения по заявке её участнику или
// проверяющему.
func (s *EscrowService) ListWorkPhotos(ctx context.Context, requestID, viewerID uuid.UUID, viewerRole string) ([]models.WorkCompletionPhoto, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return nil, apperror.ErrRequestNotFound
		}
		return nil, err
	}

	allowed := request.ClientID == viewerID ||
		(request.ProviderID != nil && *request.ProviderID == viewerID) ||
		viewerRole == models.RoleApprover || viewerRole == models.RoleMediator
	if !allowed {
		return nil, apperror.ErrForbidden
	}

	return s.photos.ListByRequest(ctx, requestID)
}

// SetBankAccount сохраняет счёт исполнителя для выплат. В ответах наружу
// уходит только маскированный номер.
func (s *EscrowService) SetBankAccount(ctx context.Context, providerID uuid.UUID, accountRef string) (*models.ProviderBankAccount, error) {
	accountRef = strings.TrimSpace(accountRef)
	if len(accountRef) < 10 {
		return nil, apperror.New(apperror.ErrCodeValidation, "номер счёта слишком короткий")
	}

	account := &models.ProviderBankAccount{
		ProviderID:    providerID,
		AccountRef:    accountRef,
		MaskedAccount: maskAccount(accountRef),
		Verified:      false,
	}

	if err := s.payments.UpsertBankAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// GetBankAccount возвращает счёт исполнителя.
func (s *EscrowService) GetBankAccount(ctx context.Context, providerID uuid.UUID) (*models.ProviderBankAccount, error) {
	account, err := s.payments.GetBankAccount(ctx, providerID)
	if err != nil {
		if errors.Is(err, repository.ErrBankAccountNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "счёт не указан")
		}
		return nil, err
	}
	return account, nil
}

func (s *EscrowService) getPayment(ctx context.Context, paymentID uuid.UUID) (*models.EscrowPayment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, apperror.ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

// maskAccount оставляет видимыми только последние четыре символа счёта.
func maskAccount(accountRef string) string {
	if len(accountRef) <= 4 {
		return accountRef
	}
	return strings.Repeat("*", len(accountRef)-4) + accountRef[len(accountRef)-4:]
}

// mapProcessorErr переводит ошибку процессинга в ошибку уровня приложения.
// Операции с таким исходом можно безопасно повторить: локальное состояние не
// менялось.
func mapProcessorErr(err error) error {
	var procErr *payments.ProcessorError
	if errors.As(err, &procErr) {
		return apperror.Wrap(err, apperror.ErrCodeUpstream, "платёжный процессинг отклонил операцию: "+procErr.Message)
	}
	return apperror.Wrap(err, apperror.ErrCodeUpstream, "платёжный процессинг недоступен")
}

// mapPaymentStatusErr переводит конкурентное изменение статуса платежа в
// конфликт уровня приложения.
func mapPaymentStatusErr(err error) error {
	if errors.Is(err, repository.ErrPaymentStatusStale) {
		return apperror.New(apperror.ErrCodeStateConflict, "статус платежа изменился, повторите запрос")
	}
	return err
}
