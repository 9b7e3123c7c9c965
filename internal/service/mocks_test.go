package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/uslugi-backend/internal/events"
	"github.com/ignatzorin/uslugi-backend/internal/models"
)

// recordingPublisher собирает события синхронно, чтобы тесты могли проверять
// рассылку без реальной шины.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Event, len(p.events))
	copy(out, p.events)
	return out
}

func (p *recordingPublisher) ByType(eventType string) []events.Event {
	var out []events.Event
	for _, e := range p.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type mockJobRepo struct {
	mock.Mock
}

func (m *mockJobRepo) Create(ctx context.Context, job *models.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *mockJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *mockJobRepo) Update(ctx context.Context, job *models.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *mockJobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *mockJobRepo) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Job, error) {
	args := m.Called(ctx, clientID, limit, offset)
	return args.Get(0).([]models.Job), args.Error(1)
}

func (m *mockJobRepo) ListOpenByCategory(ctx context.Context, categoryID uuid.UUID, limit, offset int) ([]models.Job, error) {
	args := m.Called(ctx, categoryID, limit, offset)
	return args.Get(0).([]models.Job), args.Error(1)
}

type mockCategoryDirectory struct {
	mock.Mock
}

func (m *mockCategoryDirectory) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *mockCategoryDirectory) ListCategories(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Category), args.Error(1)
}

type mockMatcher struct {
	mock.Mock
}

func (m *mockMatcher) NotifyCandidates(ctx context.Context, job *models.Job) (int, error) {
	args := m.Called(ctx, job)
	return args.Int(0), args.Error(1)
}

type mockQuoteRepo struct {
	mock.Mock
}

func (m *mockQuoteRepo) Create(ctx context.Context, quote *models.TaskQuote) error {
	args := m.Called(ctx, quote)
	return args.Error(0)
}

func (m *mockQuoteRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.TaskQuote, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TaskQuote), args.Error(1)
}

func (m *mockQuoteRepo) UpdateGates(ctx context.Context, quote *models.TaskQuote) error {
	args := m.Called(ctx, quote)
	return args.Error(0)
}

func (m *mockQuoteRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.TaskQuote, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).([]models.TaskQuote), args.Error(1)
}

func (m *mockQuoteRepo) ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.TaskQuote, error) {
	args := m.Called(ctx, providerID, limit, offset)
	return args.Get(0).([]models.TaskQuote), args.Error(1)
}

func (m *mockQuoteRepo) ListReleasedOverdue(ctx context.Context, now time.Time) ([]models.TaskQuote, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]models.TaskQuote), args.Error(1)
}

func (m *mockQuoteRepo) MarkExpired(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockRequestRepo struct {
	mock.Mock
}

func (m *mockRequestRepo) Create(ctx context.Context, request *models.ServiceRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ServiceRequest), args.Error(1)
}

func (m *mockRequestRepo) AssignMediator(ctx context.Context, requestID uuid.UUID) (*models.ServiceRequest, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ServiceRequest), args.Error(1)
}

func (m *mockRequestRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *mockRequestRepo) Requeue(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockRequestRepo) ListByMediator(ctx context.Context, mediatorID uuid.UUID, limit, offset int) ([]models.ServiceRequest, error) {
	args := m.Called(ctx, mediatorID, limit, offset)
	return args.Get(0).([]models.ServiceRequest), args.Error(1)
}

func (m *mockRequestRepo) ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ServiceRequest, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.ServiceRequest), args.Error(1)
}

func (m *mockRequestRepo) ListStaleAssigned(ctx context.Context, olderThan time.Time) ([]models.ServiceRequest, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).([]models.ServiceRequest), args.Error(1)
}

type mockUserDirectory struct {
	mock.Mock
}

func (m *mockUserDirectory) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserDirectory) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *mockUserDirectory) ListActiveByRole(ctx context.Context, role string) ([]models.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

type mockCandidateDirectory struct {
	mock.Mock
}

func (m *mockCandidateDirectory) ListProviderCandidates(ctx context.Context, categoryID uuid.UUID) ([]models.Profile, error) {
	args := m.Called(ctx, categoryID)
	return args.Get(0).([]models.Profile), args.Error(1)
}

type mockPaymentRepo struct {
	mock.Mock
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *models.EscrowPayment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *mockPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowPayment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowPayment), args.Error(1)
}

func (m *mockPaymentRepo) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*models.EscrowPayment, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowPayment), args.Error(1)
}

func (m *mockPaymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, reason *string) error {
	args := m.Called(ctx, id, from, to, reason)
	return args.Error(0)
}

func (m *mockPaymentRepo) ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.EscrowPayment, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.EscrowPayment), args.Error(1)
}

func (m *mockPaymentRepo) ListAwaitingApproval(ctx context.Context, limit, offset int) ([]models.EscrowPayment, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.EscrowPayment), args.Error(1)
}

func (m *mockPaymentRepo) UpsertBankAccount(ctx context.Context, account *models.ProviderBankAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *mockPaymentRepo) GetBankAccount(ctx context.Context, providerID uuid.UUID) (*models.ProviderBankAccount, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProviderBankAccount), args.Error(1)
}

type mockPhotoRepo struct {
	mock.Mock
}

func (m *mockPhotoRepo) CreateBatch(ctx context.Context, photos []models.WorkCompletionPhoto) error {
	args := m.Called(ctx, photos)
	return args.Error(0)
}

func (m *mockPhotoRepo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.WorkCompletionPhoto, error) {
	args := m.Called(ctx, requestID)
	return args.Get(0).([]models.WorkCompletionPhoto), args.Error(1)
}

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) Authorize(ctx context.Context, amount float64, metadata map[string]string) (string, error) {
	args := m.Called(ctx, amount, metadata)
	return args.String(0), args.Error(1)
}

func (m *mockProcessor) Confirm(ctx context.Context, intentRef string) error {
	args := m.Called(ctx, intentRef)
	return args.Error(0)
}

func (m *mockProcessor) Transfer(ctx context.Context, accountRef string, amount float64, metadata map[string]string) (string, error) {
	args := m.Called(ctx, accountRef, amount, metadata)
	return args.String(0), args.Error(1)
}

func (m *mockProcessor) Refund(ctx context.Context, intentRef, reason string) (string, error) {
	args := m.Called(ctx, intentRef, reason)
	return args.String(0), args.Error(1)
}

type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *mockNotificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *mockNotificationRepo) List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit, offset, unreadOnly)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *mockNotificationRepo) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockNotificationRepo) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type mockPusher struct {
	mock.Mock
}

func (m *mockPusher) Push(userID uuid.UUID, event string, data interface{}) error {
	args := m.Called(userID, event, data)
	return args.Error(0)
}

type mockDocumentRepo struct {
	mock.Mock
}

func (m *mockDocumentRepo) Create(ctx context.Context, doc *models.ProviderDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *mockDocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ProviderDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProviderDocument), args.Error(1)
}

func (m *mockDocumentRepo) Review(ctx context.Context, id uuid.UUID, status string, reviewerID uuid.UUID, comment *string) error {
	args := m.Called(ctx, id, status, reviewerID, comment)
	return args.Error(0)
}

func (m *mockDocumentRepo) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]models.ProviderDocument, error) {
	args := m.Called(ctx, providerID)
	return args.Get(0).([]models.ProviderDocument), args.Error(1)
}

func (m *mockDocumentRepo) CountApprovedCategories(ctx context.Context, providerID uuid.UUID) (int, error) {
	args := m.Called(ctx, providerID)
	return args.Int(0), args.Error(1)
}
