package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/uslugi-backend/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func TestMatchingService_RadiusFor(t *testing.T) {
	svc := NewMatchingService(nil, nil, 10, 25)

	assert.Equal(t, 10.0, svc.RadiusFor(models.JobKindGeneral))
	assert.Equal(t, 25.0, svc.RadiusFor(models.JobKindWorkOrder))
}

func TestMatchingService_NotifyCandidates_FiltersByRadius(t *testing.T) {
	candidates := new(mockCandidateDirectory)
	pub := &recordingPublisher{}
	svc := NewMatchingService(candidates, pub, 10, 25)
	ctx := context.Background()

	categoryID := uuid.New()
	nearID := uuid.New()
	farID := uuid.New()

	// Заказ в центре Москвы; ~5 км и ~40 км от него.
	job := &models.Job{
		ID: uuid.New(), ClientID: uuid.New(), CategoryID: categoryID,
		Kind: models.JobKindGeneral, Title: "Уборка квартиры",
		Address: "ул. Тверская, 1", Latitude: 55.7558, Longitude: 37.6173,
		Budget: 3000,
	}

	candidates.On("ListProviderCandidates", ctx, categoryID).Return([]models.Profile{
		{UserID: nearID, Latitude: floatPtr(55.79), Longitude: floatPtr(37.65)},
		{UserID: farID, Latitude: floatPtr(56.1), Longitude: floatPtr(37.9)},
	}, nil)

	notified, err := svc.NotifyCandidates(ctx, job)
	assert.NoError(t, err)
	assert.Equal(t, 1, notified)

	events := pub.ByType(models.NotificationTypeJobMatched)
	assert.Len(t, events, 1)
	assert.Equal(t, nearID, events[0].Recipient)
}

func TestMatchingService_NotifyCandidates_WorkOrderWiderRadius(t *testing.T) {
	candidates := new(mockCandidateDirectory)
	pub := &recordingPublisher{}
	svc := NewMatchingService(candidates, pub, 10, 25)
	ctx := context.Background()

	categoryID := uuid.New()
	providerID := uuid.New()

	// ~20 км от заказа: вне радиуса обычной услуги, внутри радиуса наряд-заказа.
	profile := models.Profile{UserID: providerID, Latitude: floatPtr(55.93), Longitude: floatPtr(37.62)}
	candidates.On("ListProviderCandidates", ctx, categoryID).Return([]models.Profile{profile}, nil)

	general := &models.Job{
		ID: uuid.New(), CategoryID: categoryID, Kind: models.JobKindGeneral,
		Latitude: 55.7558, Longitude: 37.6173,
	}
	notified, err := svc.NotifyCandidates(ctx, general)
	assert.NoError(t, err)
	assert.Equal(t, 0, notified)

	workOrder := &models.Job{
		ID: uuid.New(), CategoryID: categoryID, Kind: models.JobKindWorkOrder,
		Latitude: 55.7558, Longitude: 37.6173,
	}
	notified, err = svc.NotifyCandidates(ctx, workOrder)
	assert.NoError(t, err)
	assert.Equal(t, 1, notified)
}

func TestMatchingService_NotifyCandidates_PayloadHidesAddress(t *testing.T) {
	candidates := new(mockCandidateDirectory)
	pub := &recordingPublisher{}
	svc := NewMatchingService(candidates, pub, 10, 25)
	ctx := context.Background()

	categoryID := uuid.New()
	job := &models.Job{
		ID: uuid.New(), CategoryID: categoryID, Kind: models.JobKindGeneral,
		Title: "Уборка квартиры", Address: "ул. Тверская, 1",
		Latitude: 55.7558, Longitude: 37.6173, Budget: 3000,
	}

	candidates.On("ListProviderCandidates", ctx, categoryID).Return([]models.Profile{
		{UserID: uuid.New(), Latitude: floatPtr(55.76), Longitude: floatPtr(37.62)},
	}, nil)

	_, err := svc.NotifyCandidates(ctx, job)
	assert.NoError(t, err)

	events := pub.ByType(models.NotificationTypeJobMatched)
	assert.Len(t, events, 1)

	payload := events[0].Payload
	assert.Equal(t, false, payload["has_address"])
	assert.NotContains(t, payload, "address")
	assert.NotContains(t, payload, "latitude")
	assert.NotContains(t, payload, "longitude")
	assert.Contains(t, payload, "distance")
	assert.NotContains(t, events[0].Message, job.Address)
}

func TestMatchingService_NotifyCandidates_SkipsWithoutCoordsAndSelf(t *testing.T) {
	candidates := new(mockCandidateDirectory)
	pub := &recordingPublisher{}
	svc := NewMatchingService(candidates, pub, 10, 25)
	ctx := context.Background()

	categoryID := uuid.New()
	clientID := uuid.New()
	job := &models.Job{
		ID: uuid.New(), ClientID: clientID, CategoryID: categoryID,
		Kind: models.JobKindGeneral, Latitude: 55.7558, Longitude: 37.6173,
	}

	candidates.On("ListProviderCandidates", ctx, categoryID).Return([]models.Profile{
		{UserID: uuid.New()},
		{UserID: clientID, Latitude: floatPtr(55.7558), Longitude: floatPtr(37.6173)},
	}, nil)

	notified, err := svc.NotifyCandidates(ctx, job)
	assert.NoError(t, err)
	assert.Equal(t, 0, notified)
	assert.Empty(t, pub.Events())
}
