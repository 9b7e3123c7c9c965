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
	"github.com/ignatzorin/uslugi-backend/internal/validation"
)

// QuoteRepository описывает зависимости сервиса смет от хранилища.
type QuoteRepository interface {
	Create(ctx context.Context, quote *models.TaskQuote) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TaskQuote, error)
	UpdateGates(ctx context.Context, quote *models.TaskQuote) error
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.TaskQuote, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.TaskQuote, error)
	ListReleasedOverdue(ctx context.Context, now time.Time) ([]models.TaskQuote, error)
	MarkExpired(ctx context.Context, id uuid.UUID) error
}

// QuoteService ведёт смету через три этапа одобрения: цена, объём работ,
// раскрытие контактов. Этапы проходят строго по порядку, попытка перескочить
// возвращает конфликт состояния и не меняет ни один этап.
type QuoteService struct {
	quotes    QuoteRepository
	jobs      JobRepository
	users     UserDirectory
	publisher events.Publisher

	workStartWindow time.Duration
	now             func() time.Time
}

// NewQuoteService создаёт сервис смет.
func NewQuoteService(quotes QuoteRepository, jobs JobRepository, users UserDirectory, publisher events.Publisher, workStartWindow time.Duration) *QuoteService {
	return &QuoteService{
		quotes:          quotes,
		jobs:            jobs,
		users:           users,
		publisher:       publisher,
		workStartWindow: workStartWindow,
		now:             time.Now,
	}
}

// SubmitQuote создаёт смету исполнителя по открытому заказу. Повторная смета
// того же исполнителя отклоняется.
func (s *QuoteService) SubmitQuote(ctx context.Context, providerID, jobID uuid.UUID, amount float64, message string) (*models.TaskQuote, error) {
	if err := validation.ValidateBudget(amount); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateQuoteMessage(message); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, apperror.ErrJobNotFound
		}
		return nil, err
	}

	if job.Status != models.JobStatusOpen {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "заказ уже не принимает сметы")
	}
	if job.ClientID == providerID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя подать смету на собственный заказ")
	}

	quote := &models.TaskQuote{
		JobID:      jobID,
		ProviderID: providerID,
		Amount:     amount,
		Message:    message,
		Status:     models.QuoteStatusPending,
	}

	if err := s.quotes.Create(ctx, quote); err != nil {
		if errors.Is(err, repository.ErrQuoteExists) {
			return nil, apperror.New(apperror.ErrCodeConflict, "смета по этому заказу уже подана")
		}
		return nil, err
	}

	s.publisher.Publish(ctx, events.Event{
		Recipient: job.ClientID,
		Type:      models.NotificationTypeQuoteSubmitted,
		Title:     "Новая смета",
		Message:   "Исполнитель подал смету по заказу «" + job.Title + "»",
		Payload: map[string]interface{}{
			"quote_id": quote.ID.String(),
			"job_id":   jobID.String(),
			"amount":   quote.Amount,
		},
	})

	return quote, nil
}

// ApprovePrice — первый этап: клиент согласует цену сметы.
func (s *QuoteService) ApprovePrice(ctx context.Context, actorID uuid.UUID, quoteID uuid.UUID) (*models.TaskQuote, error) {
	quote, job, err := s.loadForGate(ctx, actorID, quoteID)
	if err != nil {
		return nil, err
	}

	if quote.PriceApproved {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "цена по смете уже согласована")
	}

	now := s.now()
	quote.PriceApproved = true
	quote.PriceApprovedAt = &now
	quote.PriceApprovedBy = &actorID
	quote.Status = quote.DeriveStatus()

	if err := s.quotes.UpdateGates(ctx, quote); err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.Event{
		Recipient: quote.ProviderID,
		Type:      models.NotificationTypePriceApproved,
		Title:     "Цена согласована",
		Message:   "Клиент согласовал цену по заказу «" + job.Title + "»",
		Payload: map[string]interface{}{
			"quote_id": quote.ID.String(),
			"job_id":   quote.JobID.String(),
		},
	})

	return quote, nil
}

// ReviewTask — второй этап: согласование объёма работ. Доступен только после
// согласования цены.
func (s *QuoteService) ReviewTask(ctx context.Context, actorID uuid.UUID, quoteID uuid.UUID) (*models.TaskQuote, error) {
	quote, job, err := s.loadForGate(ctx, actorID, quoteID)
	if err != nil {
		return nil, err
	}

	if !quote.PriceApproved {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "сначала должна быть согласована цена")
	}
	if quote.TaskReviewed {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "объём работ по смете уже согласован")
	}

	now := s.now()
	quote.TaskReviewed = true
	quote.TaskReviewedAt = &now
	quote.TaskReviewedBy = &actorID
	quote.Status = quote.DeriveStatus()

	if err := s.quotes.UpdateGates(ctx, quote); err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.Event{
		Recipient: quote.ProviderID,
		Type:      models.NotificationTypeTaskReviewed,
		Title:     "Объём работ согласован",
		Message:   "Клиент согласовал объём работ по заказу «" + job.Title + "»",
		Payload: map[string]interface{}{
			"quote_id": quote.ID.String(),
			"job_id":   quote.JobID.String(),
		},
	})

	return quote, nil
}

// ReleaseCustomerDetails — третий этап: раскрытие контактов клиента
// исполнителю. Доступен только после двух предыдущих этапов; выставляет
// дедлайн начала работ.
func (s *QuoteService) ReleaseCustomerDetails(ctx context.Context, actorID uuid.UUID, quoteID uuid.UUID) (*models.TaskQuote, error) {
	quote, job, err := s.loadForGate(ctx, actorID, quoteID)
	if err != nil {
		return nil, err
	}

	if !quote.PriceApproved || !quote.TaskReviewed {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "контакты раскрываются только после согласования цены и объёма работ")
	}
	if quote.CustomerDetailsReleased {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "контакты по смете уже раскрыты")
	}

	contacts, err := s.buildClientContacts(ctx, job)
	if err != nil {
		return nil, err
	}

	now := s.now()
	deadline := now.Add(s.workStartWindow)

	quote.CustomerDetailsReleased = true
	quote.CustomerDetailsReleasedAt = &now
	quote.CustomerDetailsReleasedBy = &actorID
	quote.WorkStartDeadline = &deadline
	quote.Status = quote.DeriveStatus()

	if err := s.quotes.UpdateGates(ctx, quote); err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.Event{
		Recipient: quote.ProviderID,
		Type:      models.NotificationTypeDetailsReleased,
		Title:     "Контакты клиента доступны",
		Message:   "Все этапы пройдены, работу нужно начать до " + deadline.Format("02.01.2006 15:04"),
		Payload: map[string]interface{}{
			"quote_id":            quote.ID.String(),
			"job_id":              quote.JobID.String(),
			"contacts":            contacts,
			"address":             job.Address,
			"work_start_deadline": deadline.Format(time.RFC3339),
		},
	})

	return quote, nil
}

// GetQuoteForViewer возвращает смету её исполнителю или владельцу заказа.
func (s *QuoteService) GetQuoteForViewer(ctx context.Context, quoteID, viewerID uuid.UUID, viewerRole string) (*models.TaskQuote, error) {
	quote, err := s.getQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	if quote.ProviderID == viewerID || viewerRole == models.RoleMediator {
		return quote, nil
	}

	job, err := s.jobs.GetByID(ctx, quote.JobID)
	if err != nil {
		return nil, err
	}
	if job.ClientID != viewerID {
		return nil, apperror.ErrForbidden
	}

	return quote, nil
}

// ListJobQuotes возвращает сметы заказа его владельцу.
func (s *QuoteService) ListJobQuotes(ctx context.Context, clientID, jobID uuid.UUID) ([]models.TaskQuote, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, apperror.ErrJobNotFound
		}
		return nil, err
	}
	if job.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}

	return s.quotes.ListByJob(ctx, jobID)
}

// ListMyQuotes возвращает сметы исполнителя.
func (s *QuoteService) ListMyQuotes(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.TaskQuote, error) {
	limit, offset = normalizePage(limit, offset)
	return s.quotes.ListByProvider(ctx, providerID, limit, offset)
}

// ExpireOverdue переводит в expired сметы, по которым работа не началась до
// дедлайна, и уведомляет стороны. Возвращает число просроченных смет.
func (s *QuoteService) ExpireOverdue(ctx context.Context) (int, error) {
	overdue, err := s.quotes.ListReleasedOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range overdue {
		quote := &overdue[i]
		if err := s.quotes.MarkExpired(ctx, quote.ID); err != nil {
			// Статус успел измениться, смету пропускаем.
			continue
		}
		expired++

		payload := map[string]interface{}{
			"quote_id": quote.ID.String(),
			"job_id":   quote.JobID.String(),
		}

		s.publisher.Publish(ctx, events.Event{
			Recipient: quote.ProviderID,
			Type:      models.NotificationTypeQuoteExpired,
			Title:     "Смета просрочена",
			Message:   "Работа не начата в срок, смета аннулирована",
			Payload:   payload,
		})

		if job, err := s.jobs.GetByID(ctx, quote.JobID); err == nil {
			s.publisher.Publish(ctx, events.Event{
				Recipient: job.ClientID,
				Type:      models.NotificationTypeQuoteExpired,
				Title:     "Смета просрочена",
				Message:   "Исполнитель не начал работу в срок по заказу «" + job.Title + "»",
				Payload:   payload,
			})
		}
	}

	return expired, nil
}

// loadForGate загружает смету и заказ и проверяет право актора на этапы
// одобрения. Этапы проходит только владелец заказа: ни оператор, ни другие
// роли согласовывать смету не могут.
func (s *QuoteService) loadForGate(ctx context.Context, actorID, quoteID uuid.UUID) (*models.TaskQuote, *models.Job, error) {
	quote, err := s.getQuote(ctx, quoteID)
	if err != nil {
		return nil, nil, err
	}

	if quote.Status == models.QuoteStatusExpired {
		return nil, nil, apperror.New(apperror.ErrCodeStateConflict, "смета просрочена")
	}

	job, err := s.jobs.GetByID(ctx, quote.JobID)
	if err != nil {
		return nil, nil, err
	}

	if job.ClientID != actorID {
		return nil, nil, apperror.ErrForbidden
	}

	return quote, job, nil
}

func (s *QuoteService) getQuote(ctx context.Context, quoteID uuid.UUID) (*models.TaskQuote, error) {
	quote, err := s.quotes.GetByID(ctx, quoteID)
	if err != nil {
		if errors.Is(err, repository.ErrQuoteNotFound) {
			return nil, apperror.ErrQuoteNotFound
		}
		return nil, err
	}
	return quote, nil
}

// buildClientContacts собирает контакты владельца заказа.
func (s *QuoteService) buildClientContacts(ctx context.Context, job *models.Job) (*models.ContactDetails, error) {
	user, err := s.users.GetByID(ctx, job.ClientID)
	if err != nil {
		return nil, err
	}

	contacts := &models.ContactDetails{
		Name:  user.Username,
		Email: user.Email,
	}

	profile, err := s.users.GetProfile(ctx, job.ClientID)
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
