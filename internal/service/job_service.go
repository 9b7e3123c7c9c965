package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ignatzorin/uslugi-backend/internal/logger"
	"github.com/ignatzorin/uslugi-backend/internal/models"
	"github.com/ignatzorin/uslugi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/uslugi-backend/internal/repository"
	"github.com/ignatzorin/uslugi-backend/internal/validation"
)

// JobRepository описывает зависимости сервисов от хранилища заказов.
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	Update(ctx context.Context, job *models.Job) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Job, error)
	ListOpenByCategory(ctx context.Context, categoryID uuid.UUID, limit, offset int) ([]models.Job, error)
}

// CategoryDirectory отдаёт справочник категорий услуг.
type CategoryDirectory interface {
	GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
}

// Matcher подбирает исполнителей под новый заказ и рассылает им уведомления.
type Matcher interface {
	NotifyCandidates(ctx context.Context, job *models.Job) (int, error)
}

// JobService инкапсулирует бизнес-логику заказов.
type JobService struct {
	repo       JobRepository
	categories CategoryDirectory
	matcher    Matcher
}

// CreateJobInput содержит данные нового заказа.
type CreateJobInput struct {
	CategoryID       uuid.UUID
	Kind             string
	Title            string
	Description      string
	Address          string
	Latitude         float64
	Longitude        float64
	Budget           float64
	FlexibleSchedule bool
}

// NewJobService создаёт сервис заказов.
func NewJobService(repo JobRepository, categories CategoryDirectory, matcher Matcher) *JobService {
	return &JobService{repo: repo, categories: categories, matcher: matcher}
}

// CreateJob создаёт заказ и запускает подбор исполнителей. Подбор выполняется
// в том же запросе: клиенту важно узнать, скольким исполнителям ушло
// уведомление.
func (s *JobService) CreateJob(ctx context.Context, clientID uuid.UUID, in CreateJobInput) (*models.Job, int, error) {
	if err := validation.ValidateJobTitle(in.Title); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateJobDescription(in.Description); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateBudget(in.Budget); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateCoordinates(in.Latitude, in.Longitude); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateNonEmpty("адрес", in.Address); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if in.Kind != models.JobKindGeneral && in.Kind != models.JobKindWorkOrder {
		return nil, 0, apperror.New(apperror.ErrCodeValidation, "недопустимый вид заказа")
	}

	if _, err := s.categories.GetCategory(ctx, in.CategoryID); err != nil {
		return nil, 0, apperror.New(apperror.ErrCodeValidation, "категория не найдена")
	}

	job := &models.Job{
		ClientID:         clientID,
		CategoryID:       in.CategoryID,
		Kind:             in.Kind,
		Title:            in.Title,
		Description:      in.Description,
		Address:          in.Address,
		Latitude:         in.Latitude,
		Longitude:        in.Longitude,
		Budget:           in.Budget,
		FlexibleSchedule: in.FlexibleSchedule,
		Status:           models.JobStatusOpen,
	}

	if err := s.repo.Create(ctx, job); err != nil {
		return nil, 0, err
	}

	notified, err := s.matcher.NotifyCandidates(ctx, job)
	if err != nil {
		// Заказ уже создан; неудачный подбор не откатывает создание.
		if logger.Log != nil {
			logger.Log.Errorf("job service: подбор исполнителей для %s не удался: %v", job.ID, err)
		}
	}

	return job, notified, nil
}

// GetJobForViewer возвращает заказ с учётом приватности: адрес и координаты
// видят только владелец, оператор колл-центра и проверяющий. Исполнители до
// раскрытия данных получают урезанную копию.
func (s *JobService) GetJobForViewer(ctx context.Context, jobID, viewerID uuid.UUID, viewerRole string) (*models.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, apperror.ErrJobNotFound
		}
		return nil, err
	}

	if job.ClientID == viewerID || viewerRole == models.RoleMediator || viewerRole == models.RoleApprover {
		return job, nil
	}

	public := job.PublicView()
	return &public, nil
}

// UpdateJob сохраняет изменяемые поля заказа. Редактировать можно только
// открытый заказ и только его владельцу.
func (s *JobService) UpdateJob(ctx context.Context, clientID, jobID uuid.UUID, title, description string, budget float64, flexible bool) (*models.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, apperror.ErrJobNotFound
		}
		return nil, err
	}

	if job.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}
	if job.Status != models.JobStatusOpen {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "редактировать можно только открытый заказ")
	}

	if err := validation.ValidateJobTitle(title); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateJobDescription(description); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateBudget(budget); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	job.Title = title
	job.Description = description
	job.Budget = budget
	job.FlexibleSchedule = flexible

	if err := s.repo.Update(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// TransitionJob переводит заказ в новый статус по таблице переходов.
// Движение назад и из терминальных статусов запрещено.
func (s *JobService) TransitionJob(ctx context.Context, actorID uuid.UUID, actorRole string, jobID uuid.UUID, to string) (*models.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, apperror.ErrJobNotFound
		}
		return nil, err
	}

	if job.ClientID != actorID && actorRole != models.RoleMediator {
		return nil, apperror.ErrForbidden
	}

	if !models.JobTransitionAllowed(job.Status, to) {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "переход заказа из статуса «"+job.Status+"» в «"+to+"» недопустим")
	}

	if err := s.repo.UpdateStatus(ctx, jobID, job.Status, to); err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, apperror.New(apperror.ErrCodeStateConflict, "статус заказа изменился, повторите запрос")
		}
		return nil, err
	}

	job.Status = to
	return job, nil
}

// ListClientJobs возвращает заказы клиента.
func (s *JobService) ListClientJobs(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Job, error) {
	limit, offset = normalizePage(limit, offset)
	return s.repo.ListByClient(ctx, clientID, limit, offset)
}

// ListOpenJobs возвращает открытые заказы категории в публичном виде.
func (s *JobService) ListOpenJobs(ctx context.Context, categoryID uuid.UUID, limit, offset int) ([]models.Job, error) {
	limit, offset = normalizePage(limit, offset)
	jobs, err := s.repo.ListOpenByCategory(ctx, categoryID, limit, offset)
	if err != nil {
		return nil, err
	}
	for i := range jobs {
		jobs[i] = jobs[i].PublicView()
	}
	return jobs, nil
}

// ListCategories возвращает справочник категорий.
func (s *JobService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories.ListCategories(ctx)
}

// normalizePage приводит параметры пагинации к безопасным значениям.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
