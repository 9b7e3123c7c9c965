package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/uslugi-backend/internal/models"
	"github.com/ignatzorin/uslugi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/uslugi-backend/internal/repository"
)

func newQuoteServiceForTest(quotes *mockQuoteRepo, jobs *mockJobRepo, users *mockUserDirectory, pub *recordingPublisher) *QuoteService {
	svc := NewQuoteService(quotes, jobs, users, pub, 24*time.Hour)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestQuoteService_SubmitQuote_Success(t *testing.T) {
	quotes := new(mockQuoteRepo)
	jobs := new(mockJobRepo)
	users := new(mockUserDirectory)
	pub := &recordingPublisher{}
	svc := newQuoteServiceForTest(quotes, jobs, users, pub)
	ctx := context.Background()

	clientID := uuid.New()
	providerID := uuid.New()
	jobID := uuid.New()

	jobs.On("GetByID", ctx, jobID).Return(&models.Job{
		ID: jobID, ClientID: clientID, Title: "Замена смесителя", Status: models.JobStatusOpen,
	}, nil)
	quotes.On("Create", ctx, mock.AnythingOfType("*models.TaskQuote")).Return(nil)

	quote, err := svc.SubmitQuote(ctx, providerID, jobID, 3500, "Приеду завтра, материалы свои")
	assert.NoError(t, err)
	assert.Equal(t, models.QuoteStatusPending, quote.Status)
	assert.Equal(t, providerID, quote.ProviderID)

	submitted := pub.ByType(models.NotificationTypeQuoteSubmitted)
	assert.Len(t, submitted, 1)
	assert.Equal(t, clientID, submitted[0].Recipient)
}

func TestQuoteService_SubmitQuote_DuplicateRejected(t *testing.T) {
	quotes := new(mockQuoteRepo)
	jobs := new(mockJobRepo)
	users := new(mockUserDirectory)
	pub := &recordingPublisher{}
	svc := newQuoteServiceForTest(quotes, jobs, users, pub)
	ctx := context.Background()

	jobID := uuid.New()
	jobs.On("GetByID", ctx, jobID).Return(&models.Job{
		ID: jobID, ClientID: uuid.New(), Status: models.JobStatusOpen,
	}, nil)
	quotes.On("Create", ctx, mock.AnythingOfType("*models.TaskQuote")).Return(repository.ErrQuoteExists)

	_, err := svc.SubmitQuote(ctx, uuid.New(), jobID, 3500, "Повторная смета")
	assert.Error(t, err)
	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeConflict, appErr.Code)
	assert.Empty(t, pub.Events())
}

func TestQuoteService_SubmitQuote_OwnJobRejected(t *testing.T) {
	quotes := new(mockQuoteRepo)
	jobs := new(mockJobRepo)
	users := new(mockUserDirectory)
	pub := &recordingPublisher{}
	svc := newQuoteServiceForTest(quotes, jobs, users, pub)
	ctx := context.Background()

	clientID := uuid.New()
	jobID := uuid.New()
	jobs.On("GetByID", ctx, jobID).Return(&models.Job{
		ID: jobID, ClientID: clientID, Status: models.JobStatusOpen,
	}, nil)

	_, err := svc.SubmitQuote(ctx, clientID, jobID, 3500, "Смета на свой заказ")
	assert.True(t, apperror.IsValidation(err))
}

func TestQuoteService_GatesPassInOrder(t *testing.T) {
	quotes := new(mockQuoteRepo)
	jobs := new(mockJobRepo)
	users := new(mockUserDirectory)
	pub := &recordingPublisher{}
	svc := newQuoteServiceForTest(quotes, jobs, users, pub)
	ctx := context.Background()

	clientID := uuid.New()
	quoteID := uuid.New()
	jobID := uuid.New()

	stored := &models.TaskQuote{
		ID: quoteID, JobID: jobID, ProviderID: uuid.New(),
		Amount: 3500, Status: models.QuoteStatusPending,
	}

	quotes.On("GetByID", ctx, quoteID).Return(stored, nil)
	jobs.On("GetByID", ctx, jobID).Return(&models.Job{
		ID: jobID, ClientID: clientID, Title: "Замена смесителя",
		Address: "ул. Ленина, 10", Status: models.JobStatusOpen,
	}, nil)
	quotes.On("UpdateGates", ctx, stored).Return(nil)
	users.On("GetByID", ctx, clientID).Return(&models.User{
		ID: clientID, Username: "ivan", Email: "ivan@example.com", Role: models.RoleClient,
	}, nil)
	users.On("GetProfile", ctx, clientID).Return(nil, repository.ErrProfileNotFound)

	quote, err := svc.ApprovePrice(ctx, clientID, quoteID)
	assert.NoError(t, err)
	assert.True(t, quote.PriceApproved)
	assert.Equal(t, models.QuoteStatusPriceApproved, quote.Status)

	quote, err = svc.ReviewTask(ctx, clientID, quoteID)
	assert.NoError(t, err)
	assert.True(t, quote.TaskReviewed)
	assert.Equal(t, models.QuoteStatusTaskReviewed, quote.Status)

	quote, err = svc.ReleaseCustomerDetails(ctx, clientID, quoteID)
	assert.NoError(t, err)
	assert.True(t, quote.CustomerDetailsReleased)
	assert.Equal(t, models.QuoteStatusCustomerDetailsReleased, quote.Status)
	assert.NotNil(t, quote.WorkStartDeadline)
	assert.Equal(t, svc.now().Add(24*time.Hour), *quote.WorkStartDeadline)
	assert.True(t, quote.GatesConsistent())

	released := pub.ByType(models.NotificationTypeDetailsReleased)
	assert.Len(t, released, 1)
	assert.Contains(t, released[0].Payload, "contacts")
	assert.Contains(t, released[0].Payload, "work_start_deadline")
}

func TestQuoteService_ReviewTask_BeforePriceRejected(t *testing.T) {
	quotes := new(mockQuoteRepo)
	jobs := new(mockJobRepo)
	users := new(mockUserDirectory)
	pub := &recordingPublisher{}
	svc := newQuoteServiceForTest(quotes, jobs, users, pub)
	ctx := context.Background()

	clientID := uuid.New()
	quoteID := uuid.New()
	jobID := uuid.New()

	stored := &models.TaskQuote{
		ID: quoteID, JobID: jobID, ProviderID: uuid.New(), Status: models.QuoteStatusPending,
	}
	quotes.On("GetByID", ctx, quoteID).Return(stored, nil)
	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: clientID}, nil)

	_, err := svc.ReviewTask(ctx, clientID, quoteID)
	assert.True(t, apperror.IsStateConflict(err))

	// Пропуск этапа не должен менять ни один флаг.
	assert.False(t, stored.PriceApproved)
	assert.False(t, stored.TaskReviewed)
	quotes.AssertNotCalled(t, "UpdateGates", mock.Anything, mock.Anything)
}

func TestQuoteService_ReleaseDetails_BeforeGatesRejected(t *testing.T) {
	quotes := new(mockQuoteRepo)
	jobs := new(mockJobRepo)
	users := new(mockUserDirectory)
	pub := &recordingPublisher{}
	svc := newQuoteServiceForTest(quotes, jobs, users, pub)
	ctx := context.Background()

	clientID := uuid.New()
	quoteID := uuid.New()
	jobID := uuid.New()

	stored := &models.TaskQuote{
		ID: quoteID, JobID: jobID, ProviderID: uuid.New(),
		PriceApproved: true, Status: models.QuoteStatusPriceApproved,
	}
	quotes.On("GetByID", ctx, quoteID).Return(stored, nil)
	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: clientID}, nil)

	_, err := svc.ReleaseCustomerDetails(ctx, clientID, quoteID)
	assert.True(t, apperror.IsStateConflict(err))
	assert.False(t, stored.CustomerDetailsReleased)
	assert.Empty(t, pub.ByType(models.NotificationTypeDetailsReleased))
}

func TestQuoteService_Gate_StrangerForbidden(t *testing.T) {
	quotes := new(mockQuoteRepo)
	jobs := new(mockJobRepo)
	users := new(mockUserDirectory)
	pub := &recordingPublisher{}
	svc := newQuoteServiceForTest(quotes, jobs, users, pub)
	ctx := context.Background()

	strangerID := uuid.New()
	quoteID := uuid.New()
	jobID := uuid.New()

	quotes.On("GetByID", ctx, quoteID).Return(&models.TaskQuote{
		ID: quoteID, JobID: jobID, ProviderID: uuid.New(), Status: models.QuoteStatusPending,
	}, nil)
	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: uuid.New()}, nil)

	_, err := svc.ApprovePrice(ctx, strangerID, quoteID)
	assert.True(t, apperror.IsForbidden(err))
}

func TestQuoteService_Gate_MediatorForbidden(t *testing.T) {
	quotes := new(mockQuoteRepo)
	jobs := new(mockJobRepo)
	users := new(mockUserDirectory)
	pub := &recordingPublisher{}
	svc := newQuoteServiceForTest(quotes, jobs, users, pub)
	ctx := context.Background()

	mediatorID := uuid.New()
	quoteID := uuid.New()
	jobID := uuid.New()

	stored := &models.TaskQuote{
		ID: quoteID, JobID: jobID, ProviderID: uuid.New(),
		PriceApproved: true, TaskReviewed: true, Status: models.QuoteStatusTaskReviewed,
	}
	quotes.On("GetByID", ctx, quoteID).Return(stored, nil)
	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: uuid.New()}, nil)
	users.On("GetByID", ctx, mediatorID).Return(&models.User{
		ID: mediatorID, Role: models.RoleMediator,
	}, nil)

	// Оператор колл-центра ведёт заявки, но этапы сметы согласует только
	// владелец заказа.
	_, err := svc.ApprovePrice(ctx, mediatorID, quoteID)
	assert.True(t, apperror.IsForbidden(err))

	_, err = svc.ReleaseCustomerDetails(ctx, mediatorID, quoteID)
	assert.True(t, apperror.IsForbidden(err))

	assert.False(t, stored.CustomerDetailsReleased)
	quotes.AssertNotCalled(t, "UpdateGates", mock.Anything, mock.Anything)
	assert.Empty(t, pub.Events())
}

func TestQuoteService_Gate_ExpiredQuoteRejected(t *testing.T) {
	quotes := new(mockQuoteRepo)
	jobs := new(mockJobRepo)
	users := new(mockUserDirectory)
	pub := &recordingPublisher{}
	svc := newQuoteServiceForTest(quotes, jobs, users, pub)
	ctx := context.Background()

	quoteID := uuid.New()
	quotes.On("GetByID", ctx, quoteID).Return(&models.TaskQuote{
		ID: quoteID, Status: models.QuoteStatusExpired,
	}, nil)

	_, err := svc.ApprovePrice(ctx, uuid.New(), quoteID)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestQuoteService_ExpireOverdue(t *testing.T) {
	quotes := new(mockQuoteRepo)
	jobs := new(mockJobRepo)
	users := new(mockUserDirectory)
	pub := &recordingPublisher{}
	svc := newQuoteServiceForTest(quotes, jobs, users, pub)
	ctx := context.Background()

	clientID := uuid.New()
	providerID := uuid.New()
	jobID := uuid.New()
	overdueID := uuid.New()
	racedID := uuid.New()

	quotes.On("ListReleasedOverdue", ctx, svc.now()).Return([]models.TaskQuote{
		{ID: overdueID, JobID: jobID, ProviderID: providerID, Status: models.QuoteStatusCustomerDetailsReleased},
		{ID: racedID, JobID: jobID, ProviderID: providerID, Status: models.QuoteStatusCustomerDetailsReleased},
	}, nil)
	quotes.On("MarkExpired", ctx, overdueID).Return(nil)
	// Вторая смета успела измениться конкурентно и пропускается.
	quotes.On("MarkExpired", ctx, racedID).Return(repository.ErrQuoteNotFound)
	jobs.On("GetByID", ctx, jobID).Return(&models.Job{
		ID: jobID, ClientID: clientID, Title: "Замена смесителя",
	}, nil)

	expired, err := svc.ExpireOverdue(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, expired)

	notices := pub.ByType(models.NotificationTypeQuoteExpired)
	assert.Len(t, notices, 2)
	recipients := []uuid.UUID{notices[0].Recipient, notices[1].Recipient}
	assert.Contains(t, recipients, providerID)
	assert.Contains(t, recipients, clientID)
}

func TestQuoteService_ListJobQuotes_OwnerOnly(t *testing.T) {
	quotes := new(mockQuoteRepo)
	jobs := new(mockJobRepo)
	users := new(mockUserDirectory)
	pub := &recordingPublisher{}
	svc := newQuoteServiceForTest(quotes, jobs, users, pub)
	ctx := context.Background()

	jobID := uuid.New()
	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: uuid.New()}, nil)

	_, err := svc.ListJobQuotes(ctx, uuid.New(), jobID)
	assert.True(t, apperror.IsForbidden(err))
}
