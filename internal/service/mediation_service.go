package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/uslugi-backend/internal/events"
	"github.com/ignatzorin/uslugi-backend/internal/models"
	"github.com/ignatzorin/uslugi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/uslugi-backend/internal/repository"
)

// RequestRepository описывает зависимости сервиса медиации от хранилища заявок.
type RequestRepository interface {
	Create(ctx context.Context, request *models.ServiceRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error)
	AssignMediator(ctx context.Context, requestID uuid.UUID) (*models.ServiceRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error
	Requeue(ctx context.Context, id uuid.UUID) error
	ListByMediator(ctx context.Context, mediatorID uuid.UUID, limit, offset int) ([]models.ServiceRequest, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ServiceRequest, error)
	ListStaleAssigned(ctx context.Context, olderThan time.Time) ([]models.ServiceRequest, error)
}

// UserDirectory отдаёт пользователей и профили для сборки контактных данных.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	ListActiveByRole(ctx context.Context, role string) ([]models.User, error)
}

// MediationService ведёт заявку через колл-центр: от отклика исполнителя до
// одобрения и раскрытия контактов. Контакты клиента проходят только через
// оператора; напрямую стороны друг друга не видят до одобрения.
type MediationService struct {
	requests  RequestRepository
	jobs      JobRepository
	users     UserDirectory
	publisher events.Publisher
}

// NewMediationService создаёт сервис медиации.
func NewMediationService(requests RequestRepository, jobs JobRepository, users UserDirectory, publisher events.Publisher) *MediationService {
	return &MediationService{requests: requests, jobs: jobs, users: users, publisher: publisher}
}

// RespondToJob создаёт заявку исполнителя на заказ и сразу закрепляет её за
// наименее загруженным оператором колл-центра.
func (s *MediationService) RespondToJob(ctx context.Context, providerID, jobID uuid.UUID) (*models.ServiceRequest, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, apperror.ErrJobNotFound
		}
		return nil, err
	}

	if job.Status != models.JobStatusOpen {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "заказ уже не принимает отклики")
	}
	if job.ClientID == providerID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя откликнуться на собственный заказ")
	}

	request := &models.ServiceRequest{
		JobID:      &job.ID,
		ClientID:   job.ClientID,
		ProviderID: &providerID,
		Status:     models.RequestStatusPending,
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, err
	}

	assigned, err := s.requests.AssignMediator(ctx, request.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveMediator) {
			// Заявка остаётся в pending, её подберёт следующий обход.
			return request, nil
		}
		return nil, err
	}

	if assigned.MediatorID != nil {
		s.publisher.Publish(ctx, events.Event{
			Recipient: *assigned.MediatorID,
			Type:      models.NotificationTypeRequestAssigned,
			Title:     "Новая заявка",
			Message:   "Вам назначена заявка на прозвон исполнителя",
			Payload: map[string]interface{}{
				"request_id": assigned.ID.String(),
				"job_id":     jobID.String(),
			},
		})
	}

	return assigned, nil
}

// StartCall отмечает, что оператор начал прозвон исполнителя.
func (s *MediationService) StartCall(ctx context.Context, mediatorID, requestID uuid.UUID) (*models.ServiceRequest, error) {
	return s.mediatorTransition(ctx, mediatorID, requestID,
		models.RequestStatusAssignedToCallCenter, models.RequestStatusCallingProvider)
}

// MarkContacted фиксирует успешный контакт с исполнителем.
func (s *MediationService) MarkContacted(ctx context.Context, mediatorID, requestID uuid.UUID) (*models.ServiceRequest, error) {
	return s.mediatorTransition(ctx, mediatorID, requestID,
		models.RequestStatusCallingProvider, models.RequestStatusProviderContacted)
}

// Approve одобряет заявку после контакта: исполнителю раскрываются контакты
// клиента. Это единственная точка, где контакты уходят исполнителю.
func (s *MediationService) Approve(ctx context.Context, mediatorID, requestID uuid.UUID) (*models.ServiceRequest, error) {
	request, err := s.mediatorTransition(ctx, mediatorID, requestID,
		models.RequestStatusProviderContacted, models.RequestStatusCallCenterApproved)
	if err != nil {
		return nil, err
	}

	if request.ProviderID != nil {
		contacts, err := s.buildContactDetails(ctx, request.ClientID)
		if err != nil {
			return nil, err
		}

		payload := map[string]interface{}{
			"request_id": request.ID.String(),
			"contacts":   contacts,
		}
		if request.JobID != nil {
			payload["job_id"] = request.JobID.String()
		}

		s.publisher.Publish(ctx, events.Event{
			Recipient: *request.ProviderID,
			Type:      models.NotificationTypeRequestApproved,
			Title:     "Заявка одобрена",
			Message:   "Колл-центр одобрил заявку, контакты клиента доступны",
			Payload:   payload,
		})
	}

	return request, nil
}

// Accept — подтверждение клиентом, что исполнитель выбран и стороны
// договорились о работе.
func (s *MediationService) Accept(ctx context.Context, clientID, requestID uuid.UUID) (*models.ServiceRequest, error) {
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if request.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}
	if !models.RequestTransitionAllowed(request.Status, models.RequestStatusAccepted) {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "заявку нельзя принять из статуса «"+request.Status+"»")
	}

	if err := s.requests.UpdateStatus(ctx, requestID, request.Status, models.RequestStatusAccepted); err != nil {
		return nil, mapRequestStatusErr(err)
	}

	request.Status = models.RequestStatusAccepted
	return request, nil
}

// Cancel отменяет заявку. Доступно клиенту и закреплённому оператору, пока
// работы не начались.
func (s *MediationService) Cancel(ctx context.Context, actorID uuid.UUID, requestID uuid.UUID) (*models.ServiceRequest, error) {
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	allowed := request.ClientID == actorID ||
		(request.MediatorID != nil && *request.MediatorID == actorID) ||
		(request.ProviderID != nil && *request.ProviderID == actorID)
	if !allowed {
		return nil, apperror.ErrForbidden
	}
	if !models.RequestTransitionAllowed(request.Status, models.RequestStatusCancelled) {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "заявку нельзя отменить из статуса «"+request.Status+"»")
	}

	if err := s.requests.UpdateStatus(ctx, requestID, request.Status, models.RequestStatusCancelled); err != nil {
		return nil, mapRequestStatusErr(err)
	}

	request.Status = models.RequestStatusCancelled
	return request, nil
}

// GetClientContacts возвращает контакты клиента. Закреплённому оператору они
// доступны всегда, исполнителю — только после одобрения колл-центром.
func (s *MediationService) GetClientContacts(ctx context.Context, actorID, requestID uuid.UUID) (*models.ContactDetails, error) {
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	isMediator := request.MediatorID != nil && *request.MediatorID == actorID
	isProvider := request.ProviderID != nil && *request.ProviderID == actorID

	if !isMediator && !(isProvider && models.RequestDisclosureAllowed(request.Status)) {
		return nil, apperror.ErrForbidden
	}

	return s.buildContactDetails(ctx, request.ClientID)
}

// GetRequestForViewer возвращает заявку участнику или закреплённому оператору.
func (s *MediationService) GetRequestForViewer(ctx context.Context, requestID, viewerID uuid.UUID) (*models.ServiceRequest, error) {
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	allowed := request.ClientID == viewerID ||
		(request.ProviderID != nil && *request.ProviderID == viewerID) ||
		(request.MediatorID != nil && *request.MediatorID == viewerID)
	if !allowed {
		return nil, apperror.ErrForbidden
	}

	return request, nil
}

// ListMediatorQueue возвращает очередь заявок оператора.
func (s *MediationService) ListMediatorQueue(ctx context.Context, mediatorID uuid.UUID, limit, offset int) ([]models.ServiceRequest, error) {
	limit, offset = normalizePage(limit, offset)
	return s.requests.ListByMediator(ctx, mediatorID, limit, offset)
}

// ListMyRequests возвращает заявки, где пользователь — клиент или исполнитель.
func (s *MediationService) ListMyRequests(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ServiceRequest, error) {
	limit, offset = normalizePage(limit, offset)
	return s.requests.ListByParticipant(ctx, userID, limit, offset)
}

// RequeueStale возвращает зависшую заявку в очередь и закрепляет за новым
// оператором. Используется фоновым обходом.
func (s *MediationService) RequeueStale(ctx context.Context, requestID uuid.UUID) (*models.ServiceRequest, error) {
	if err := s.requests.Requeue(ctx, requestID); err != nil {
		return nil, mapRequestStatusErr(err)
	}

	assigned, err := s.requests.AssignMediator(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveMediator) {
			return nil, nil
		}
		return nil, err
	}

	if assigned.MediatorID != nil {
		s.publisher.Publish(ctx, events.Event{
			Recipient: *assigned.MediatorID,
			Type:      models.NotificationTypeRequestAssigned,
			Title:     "Переназначенная заявка",
			Message:   "Вам передана заявка, зависшая у другого оператора",
			Payload: map[string]interface{}{
				"request_id": assigned.ID.String(),
			},
		})
	}

	return assigned, nil
}

// mediatorTransition выполняет переход заявки, доступный только закреплённому
// оператору.
func (s *MediationService) mediatorTransition(ctx context.Context, mediatorID, requestID uuid.UUID, from, to string) (*models.ServiceRequest, error) {
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if request.MediatorID == nil || *request.MediatorID != mediatorID {
		return nil, apperror.ErrForbidden
	}
	if request.Status != from || !models.RequestTransitionAllowed(from, to) {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "переход заявки из статуса «"+request.Status+"» в «"+to+"» недопустим")
	}

	if err := s.requests.UpdateStatus(ctx, requestID, from, to); err != nil {
		return nil, mapRequestStatusErr(err)
	}

	request.Status = to
	return request, nil
}

func (s *MediationService) getRequest(ctx context.Context, requestID uuid.UUID) (*models.ServiceRequest, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return nil, apperror.ErrRequestNotFound
		}
		return nil, err
	}
	return request, nil
}

// buildContactDetails собирает пакет контактов клиента из пользователя и
// профиля.
func (s *MediationService) buildContactDetails(ctx context.Context, clientID uuid.UUID) (*models.ContactDetails, error) {
	user, err := s.users.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	contacts := &models.ContactDetails{
		Name:  user.Username,
		Email: user.Email,
	}

	profile, err := s.users.GetProfile(ctx, clientID)
	if err != nil {
		if !errors.Is(err, repository.ErrProfileNotFound) {
			return nil, err
		}
		return contacts, nil
	}

	if profile.DisplayName != "" {
		contacts.Name = profile.DisplayName
	}
	contacts.Phone = profile.Phone
	contacts.Address = profile.Address

	return contacts, nil
}

// mapRequestStatusErr переводит конкурентное изменение статуса в конфликт
// уровня приложения.
func mapRequestStatusErr(err error) error {
	if errors.Is(err, repository.ErrRequestStatusStale) {
		return apperror.New(apperror.ErrCodeStateConflict, "статус заявки изменился, повторите запрос")
	}
	return err
}
