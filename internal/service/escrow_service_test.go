package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/uslugi-backend/internal/models"
	"github.com/ignatzorin/uslugi-backend/internal/payments"
	"github.com/ignatzorin/uslugi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/uslugi-backend/internal/repository"
)

type escrowFixture struct {
	payments  *mockPaymentRepo
	requests  *mockRequestRepo
	photos    *mockPhotoRepo
	users     *mockUserDirectory
	processor *mockProcessor
	pub       *recordingPublisher
	svc       *EscrowService
}

func newEscrowFixture() *escrowFixture {
	f := &escrowFixture{
		payments:  new(mockPaymentRepo),
		requests:  new(mockRequestRepo),
		photos:    new(mockPhotoRepo),
		users:     new(mockUserDirectory),
		processor: new(mockProcessor),
		pub:       &recordingPublisher{},
	}
	f.svc = NewEscrowService(f.payments, f.requests, f.photos, f.users, f.processor, f.pub, 0.15, 0.08)
	return f
}

func TestEscrowService_CreatePayment_Success(t *testing.T) {
	f := newEscrowFixture()
	ctx := context.Background()

	clientID := uuid.New()
	providerID := uuid.New()
	requestID := uuid.New()

	f.requests.On("GetByID", ctx, requestID).Return(&models.ServiceRequest{
		ID: requestID, ClientID: clientID, ProviderID: &providerID,
		Status: models.RequestStatusAccepted,
	}, nil)
	f.payments.On("GetByRequestID", ctx, requestID).Return(nil, repository.ErrPaymentNotFound)
	f.processor.On("Authorize", ctx, 1230.0, mock.Anything).Return("intent-42", nil)
	f.payments.On("Create", ctx, mock.AnythingOfType("*models.EscrowPayment")).Return(nil)

	payment, err := f.svc.CreatePayment(ctx, clientID, requestID, 1000)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, "intent-42", payment.IntentRef)
	assert.Equal(t, 150.0, payment.PlatformFee)
	assert.Equal(t, 80.0, payment.Tax)
	assert.Equal(t, 1230.0, payment.TotalAmount)
	assert.Equal(t, 850.0, payment.PayoutAmount)
}

func TestEscrowService_CreatePayment_DuplicateRejected(t *testing.T) {
	f := newEscrowFixture()
	ctx := context.Background()

	clientID := uuid.New()
	providerID := uuid.New()
	requestID := uuid.New()

	f.requests.On("GetByID", ctx, requestID).Return(&models.ServiceRequest{
		ID: requestID, ClientID: clientID, ProviderID: &providerID,
		Status: models.RequestStatusAccepted,
	}, nil)
	f.payments.On("GetByRequestID", ctx, requestID).Return(&models.EscrowPayment{ID: uuid.New()}, nil)

	_, err := f.svc.CreatePayment(ctx, clientID, requestID, 1000)
	assert.Error(t, err)
	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeConflict, appErr.Code)

	// Дубль отсекается до обращения к процессингу.
	f.processor.AssertNotCalled(t, "Authorize", mock.Anything, mock.Anything, mock.Anything)
}

func TestEscrowService_CreatePayment_RequestNotAccepted(t *testing.T) {
	f := newEscrowFixture()
	ctx := context.Background()

	clientID := uuid.New()
	requestID := uuid.New()

	f.requests.On("GetByID", ctx, requestID).Return(&models.ServiceRequest{
		ID: requestID, ClientID: clientID, Status: models.RequestStatusCallCenterApproved,
	}, nil)

	_, err := f.svc.CreatePayment(ctx, clientID, requestID, 1000)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestEscrowService_CreatePayment_ProcessorFailureAborts(t *testing.T) {
	f := newEscrowFixture()
	ctx := context.Background()

	clientID := uuid.New()
	providerID := uuid.New()
	requestID := uuid.New()

	f.requests.On("GetByID", ctx, requestID).Return(&models.ServiceRequest{
		ID: requestID, ClientID: clientID, ProviderID: &providerID,
		Status: models.RequestStatusAccepted,
	}, nil)
	f.payments.On("GetByRequestID", ctx, requestID).Return(nil, repository.ErrPaymentNotFound)
	f.processor.On("Authorize", ctx, 1230.0, mock.Anything).
		Return("", &payments.ProcessorError{Code: "card_declined", Message: "карта отклонена"})

	_, err := f.svc.CreatePayment(ctx, clientID, requestID, 1000)
	assert.True(t, apperror.IsUpstream(err))
	f.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestEscrowService_ConfirmPayment_MovesRequestInProgress(t *testing.T) {
	f := newEscrowFixture()
	ctx := context.Background()

	clientID := uuid.New()
	providerID := uuid.New()
	paymentID := uuid.New()
	requestID := uuid.New()

	f.payments.On("GetByID", ctx, paymentID).Return(&models.EscrowPayment{
		ID: paymentID, ServiceRequestID: requestID, ClientID: clientID,
		ProviderID: providerID, IntentRef: "intent-42",
		Status: models.PaymentStatusPending, PayoutAmount: 850,
	}, nil)
	f.processor.On("Confirm", ctx, "intent-42").Return(nil)
	f.payments.On("UpdateStatus", ctx, paymentID, models.PaymentStatusPending, models.PaymentStatusHeld, (*string)(nil)).Return(nil)
	f.requests.On("UpdateStatus", ctx, requestID, models.RequestStatusAccepted, models.RequestStatusInProgress).Return(nil)

	payment, err := f.svc.ConfirmPayment(ctx, clientID, paymentID)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusHeld, payment.Status)

	held := f.pub.ByType(models.NotificationTypePaymentHeld)
	assert.Len(t, held, 1)
	assert.Equal(t, providerID, held[0].Recipient)
}

func TestEscrowService_ConfirmPayment_ProcessorFailureKeepsPending(t *testing.T) {
	f := newEscrowFixture()
	ctx := context.Background()

	clientID := uuid.New()
	paymentID := uuid.New()

	f.payments.On("GetByID", ctx, paymentID).Return(&models.EscrowPayment{
		ID: paymentID, ClientID: clientID, IntentRef: "intent-42",
		Status: models.PaymentStatusPending,
	}, nil)
	f.processor.On("Confirm", ctx, "intent-42").
		Return(&payments.ProcessorError{Code: "timeout", Message: "таймаут"})

	_, err := f.svc.ConfirmPayment(ctx, clientID, paymentID)
	assert.True(t, apperror.IsUpstream(err))
	f.payments.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.requests.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEscrowService_SubmitWork_NotifiesApprovers(t *testing.T) {
	f := newEscrowFixture()
	ctx := context.Background()

	providerID := uuid.New()
	paymentID := uuid.New()
	requestID := uuid.New()
	approverA := uuid.New()
	approverB := uuid.New()

	f.payments.On("GetByID", ctx, paymentID).Return(&models.EscrowPayment{
		ID: paymentID, ServiceRequestID: requestID, ClientID: uuid.New(),
		ProviderID: providerID, Status: models.PaymentStatusHeld,
	}, nil)
	f.photos.On("CreateBatch", ctx, mock.AnythingOfType("[]models.WorkCompletionPhoto")).Return(nil)
	f.payments.On("UpdateStatus", ctx, paymentID, models.PaymentStatusHeld, models.PaymentStatusAwaitingApproval, (*string)(nil)).Return(nil)
	f.users.On("ListActiveByRole", ctx, models.RoleApprover).Return([]models.User{
		{ID: approverA}, {ID: approverB},
	}, nil)

	payment, err := f.svc.SubmitWork(ctx, providerID, paymentID, SubmitWorkInput{
		PhotoURLs: []string{"/media/work-photos/a.jpg", "/media/work-photos/b.jpg"},
	})
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusAwaitingApproval, payment.Status)

	submitted := f.pub.ByType(models.NotificationTypeWorkSubmitted)
	assert.Len(t, submitted, 2)
}

func TestEscrowService_SubmitWork_RequiresPhotos(t *testing.T) {
	f := newEscrowFixture()
	ctx := context.Background()

	_, err := f.svc.SubmitWork(ctx, uuid.New(), uuid.New(), SubmitWorkInput{})
	assert.True(t, apperror.IsValidation(err))
}

func TestEscrowService_SubmitWork_WrongProviderForbidden(t *testing.T) {
	f := newEscrowFixture()
	ctx := context.Background()

	paymentID := uuid.New()
	f.payments.On("GetByID", ctx, paymentID).Return(&models.EscrowPayment{
		ID: paymentID, ProviderID: uuid.New(), Status: models.PaymentStatusHeld,
	}, nil)

	_, err := f.svc.SubmitWork(ctx, uuid.New(), paymentID, SubmitWorkInput{
		PhotoURLs: []string{"/media/work-photos/a.jpg"},
	})
	assert.True(t, apperror.IsForbidden(err))
}

func TestEscrowService_ApprovePayment_ReleasesAndCompletes(t *testing.T) {
	f := newEscrowFixture()
	ctx := context.Background()

	approverID := uuid.New()
	clientID := uuid.New()
	providerID := uuid.New()
	paymentID := uuid.New()
	requestID := uuid.New()

	f.payments.On("GetByID", ctx, paymentID).Return(&models.EscrowPayment{
		ID: paymentID, ServiceRequestID: requestID, ClientID: clientID,
		ProviderID: providerID, Status: models.PaymentStatusAwaitingApproval,
		PayoutAmount: 850,
	}, nil)
	f.payments.On("GetBankAccount", ctx, providerID).Return(&models.ProviderBankAccount{
		ProviderID: providerID, AccountRef: "40817810000000000042",
	}, nil)
	f.processor.On("Transfer", ctx, "40817810000000000042", 850.0, mock.Anything).Return("transfer-1", nil)
	f.payments.On("UpdateStatus", ctx, paymentID, models.PaymentStatusAwaitingApproval, models.PaymentStatusReleased, (*string)(nil)).Return(nil)
	f.requests.On("UpdateStatus", ctx, requestID, models.RequestStatusInProgress, models.RequestStatusCompleted).Return(nil)

	payment, err := f.svc.ApprovePayment(ctx, approverID, paymentID)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusReleased, payment.Status)

	released := f.pub.ByType(models.NotificationTypePaymentReleased)
	assert.Len(t, released, 2)
}

func TestEscrowService_ApprovePayment_NoBankAccount(t *testing.T) {
	f := newEscrowFixture()
	ctx := context.Background()

	providerID := uuid.New()
	paymentID := uuid.New()

	f.payments.On("GetByID", ctx, paymentID).Return(&models.EscrowPayment{
		ID: paymentID, ProviderID: providerID, Status: models.PaymentStatusAwaitingApproval,
	}, nil)
	f.payments.On("GetBankAccount", ctx, providerID).Return(nil, repository.ErrBankAccountNotFound)

	_, err := f.svc.ApprovePayment(ctx, uuid.New(), paymentID)
	assert.True(t, apperror.IsStateConflict(err))
	f.processor.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEscrowService_ApprovePayment_TransferFailureAborts(t *testing.T) {
	f := newEscrowFixture()
	ctx := context.Background()

	providerID := uuid.New()
	paymentID := uuid.New()

	f.payments.On("GetByID", ctx, paymentID).Return(&models.EscrowPayment{
		ID: paymentID, ProviderID: providerID,
		Status: models.PaymentStatusAwaitingApproval, PayoutAmount: 850,
	}, nil)
	f.payments.On("GetBankAccount", ctx, providerID).Return(&models.ProviderBankAccount{
		ProviderID: providerID, AccountRef: "40817810000000000042",
	}, nil)
	f.processor.On("Transfer", ctx, mock.Anything, 850.0, mock.Anything).
		Return("", &payments.ProcessorError{Code: "unavailable", Message: "недоступен"})

	_, err := f.svc.ApprovePayment(ctx, uuid.New(), paymentID)
	assert.True(t, apperror.IsUpstream(err))
	f.payments.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEscrowService_RejectPayment_RefundsAndDisputes(t *testing.T) {
	f := newEscrowFixture()
	ctx := context.Background()

	clientID := uuid.New()
	providerID := uuid.New()
	paymentID := uuid.New()
	requestID := uuid.New()
	reason := "работа не соответствует фото"

	f.payments.On("GetByID", ctx, paymentID).Return(&models.EscrowPayment{
		ID: paymentID, ServiceRequestID: requestID, ClientID: clientID,
		ProviderID: providerID, IntentRef: "intent-42",
		Status: models.PaymentStatusAwaitingApproval,
	}, nil)
	f.processor.On("Refund", ctx, "intent-42", reason).Return("refund-1", nil)
	f.payments.On("UpdateStatus", ctx, paymentID, models.PaymentStatusAwaitingApproval, models.PaymentStatusRefunded, &reason).Return(nil)
	f.requests.On("UpdateStatus", ctx, requestID, models.RequestStatusInProgress, models.RequestStatusDisputedAndRefunded).Return(nil)

	payment, err := f.svc.RejectPayment(ctx, uuid.New(), paymentID, reason)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, payment.Status)
	assert.Equal(t, reason, *payment.RejectionReason)

	refunded := f.pub.ByType(models.NotificationTypePaymentRefunded)
	assert.Len(t, refunded, 2)
}

func TestEscrowService_RejectPayment_RequiresReason(t *testing.T) {
	f := newEscrowFixture()
	ctx := context.Background()

	_, err := f.svc.RejectPayment(ctx, uuid.New(), uuid.New(), "   ")
	assert.True(t, apperror.IsValidation(err))
}

func TestEscrowService_SetBankAccount_Masked(t *testing.T) {
	f := newEscrowFixture()
	ctx := context.Background()

	providerID := uuid.New()
	f.payments.On("UpsertBankAccount", ctx, mock.AnythingOfType("*models.ProviderBankAccount")).Return(nil)

	account, err := f.svc.SetBankAccount(ctx, providerID, "40817810000000000042")
	assert.NoError(t, err)
	assert.Equal(t, "****************0042", account.MaskedAccount)
	assert.False(t, account.Verified)
}

func TestEscrowService_SetBankAccount_TooShort(t *testing.T) {
	f := newEscrowFixture()
	ctx := context.Background()

	_, err := f.svc.SetBankAccount(ctx, uuid.New(), "12345")
	assert.True(t, apperror.IsValidation(err))
}

func TestEscrowService_GetPaymentForViewer_StrangerForbidden(t *testing.T) {
	f := newEscrowFixture()
	ctx := context.Background()

	paymentID := uuid.New()
	f.payments.On("GetByID", ctx, paymentID).Return(&models.EscrowPayment{
		ID: paymentID, ClientID: uuid.New(), ProviderID: uuid.New(),
	}, nil)

	_, err := f.svc.GetPaymentForViewer(ctx, paymentID, uuid.New(), models.RoleProvider)
	assert.True(t, apperror.IsForbidden(err))

	payment, err := f.svc.GetPaymentForViewer(ctx, paymentID, uuid.New(), models.RoleApprover)
	assert.NoError(t, err)
	assert.Equal(t, paymentID, payment.ID)
}
