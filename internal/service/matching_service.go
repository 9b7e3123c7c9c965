package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/uslugi-backend/internal/events"
	"github.com/ignatzorin/uslugi-backend/internal/geo"
	"github.com/ignatzorin/uslugi-backend/internal/models"
)

// CandidateDirectory отдаёт профили исполнителей, пригодных для подбора:
// активных, верифицированных, с координатами и совпадающей категорией.
type CandidateDirectory interface {
	ListProviderCandidates(ctx context.Context, categoryID uuid.UUID) ([]models.Profile, error)
}

// MatchingService подбирает исполнителей под заказ. Подбор никогда не
// раскрывает адрес клиента: в уведомление попадает только округлённое
// расстояние.
type MatchingService struct {
	candidates CandidateDirectory
	publisher  events.Publisher

	generalRadiusKm   float64
	workOrderRadiusKm float64
}

// NewMatchingService создаёт сервис подбора.
func NewMatchingService(candidates CandidateDirectory, publisher events.Publisher, generalRadiusKm, workOrderRadiusKm float64) *MatchingService {
	return &MatchingService{
		candidates:        candidates,
		publisher:         publisher,
		generalRadiusKm:   generalRadiusKm,
		workOrderRadiusKm: workOrderRadiusKm,
	}
}

// RadiusFor возвращает радиус подбора для вида заказа. Наряд-заказы
// распространяются шире обычных услуг.
func (s *MatchingService) RadiusFor(kind string) float64 {
	if kind == models.JobKindWorkOrder {
		return s.workOrderRadiusKm
	}
	return s.generalRadiusKm
}

// NotifyCandidates рассылает уведомления исполнителям в радиусе заказа и
// возвращает число адресатов. Исполнители вне радиуса отбрасываются молча:
// ни им, ни клиенту об этом не сообщается.
func (s *MatchingService) NotifyCandidates(ctx context.Context, job *models.Job) (int, error) {
	profiles, err := s.candidates.ListProviderCandidates(ctx, job.CategoryID)
	if err != nil {
		return 0, err
	}

	radius := s.RadiusFor(job.Kind)
	notified := 0

	for _, profile := range profiles {
		if profile.Latitude == nil || profile.Longitude == nil {
			continue
		}
		if profile.UserID == job.ClientID {
			continue
		}

		distance := geo.DistanceKm(job.Latitude, job.Longitude, *profile.Latitude, *profile.Longitude)
		if distance > radius {
			continue
		}

		// Payload намеренно не содержит адреса и координат: до одобрения
		// колл-центра исполнитель видит только примерное расстояние.
		s.publisher.Publish(ctx, events.Event{
			Recipient: profile.UserID,
			Type:      models.NotificationTypeJobMatched,
			Title:     "Новый заказ поблизости",
			Message:   "Появился заказ «" + job.Title + "» в " + geo.ApproxDistance(distance) + " от вас",
			Payload: map[string]interface{}{
				"job_id":      job.ID.String(),
				"category_id": job.CategoryID.String(),
				"kind":        job.Kind,
				"title":       job.Title,
				"budget":      job.Budget,
				"distance":    geo.ApproxDistance(distance),
				"has_address": false,
			},
		})
		notified++
	}

	return notified, nil
}
