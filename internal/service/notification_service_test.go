package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/uslugi-backend/internal/events"
	"github.com/ignatzorin/uslugi-backend/internal/models"
)

func TestNotificationService_Notify_StoresThenPushes(t *testing.T) {
	repo := new(mockNotificationRepo)
	pusher := new(mockPusher)
	svc := NewNotificationService(repo, pusher)
	ctx := context.Background()

	userID := uuid.New()
	repo.On("Create", ctx, mock.AnythingOfType("*models.Notification")).Return(nil)
	pusher.On("Push", userID, models.NotificationTypeJobMatched, mock.Anything).Return(nil)

	err := svc.Notify(ctx, userID, models.NotificationTypeJobMatched, "Новый заказ", "Рядом появился подходящий заказ",
		map[string]interface{}{"job_id": uuid.New().String()})
	assert.NoError(t, err)

	repo.AssertCalled(t, "Create", ctx, mock.AnythingOfType("*models.Notification"))
	pusher.AssertCalled(t, "Push", userID, models.NotificationTypeJobMatched, mock.Anything)
}

func TestNotificationService_Notify_PushFailureIsNotFatal(t *testing.T) {
	repo := new(mockNotificationRepo)
	pusher := new(mockPusher)
	svc := NewNotificationService(repo, pusher)
	ctx := context.Background()

	userID := uuid.New()
	repo.On("Create", ctx, mock.AnythingOfType("*models.Notification")).Return(nil)
	pusher.On("Push", userID, models.NotificationTypeQuoteSubmitted, mock.Anything).
		Return(errors.New("нет активных подключений"))

	err := svc.Notify(ctx, userID, models.NotificationTypeQuoteSubmitted, "Смета", "Поступила смета", nil)
	assert.NoError(t, err)
}

func TestNotificationService_Notify_CreateFailureSkipsPush(t *testing.T) {
	repo := new(mockNotificationRepo)
	pusher := new(mockPusher)
	svc := NewNotificationService(repo, pusher)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*models.Notification")).Return(errors.New("db down"))

	err := svc.Notify(ctx, uuid.New(), models.NotificationTypePaymentHeld, "Оплата", "Средства зарезервированы", nil)
	assert.Error(t, err)
	pusher.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationService_HandleEvent_DeliversBusEvent(t *testing.T) {
	repo := new(mockNotificationRepo)
	pusher := new(mockPusher)
	svc := NewNotificationService(repo, pusher)
	ctx := context.Background()

	userID := uuid.New()
	repo.On("Create", ctx, mock.AnythingOfType("*models.Notification")).Return(nil)
	pusher.On("Push", userID, models.NotificationTypeRequestAssigned, mock.Anything).Return(nil)

	svc.HandleEvent(ctx, events.Event{
		Recipient: userID,
		Type:      models.NotificationTypeRequestAssigned,
		Title:     "Новая заявка",
		Message:   "Вам назначена заявка",
	})

	repo.AssertExpectations(t)
	pusher.AssertExpectations(t)
}

func TestNotificationService_MarkAsRead_OwnerOnly(t *testing.T) {
	repo := new(mockNotificationRepo)
	svc := NewNotificationService(repo, nil)
	ctx := context.Background()

	ownerID := uuid.New()
	notificationID := uuid.New()
	repo.On("GetByID", ctx, notificationID).Return(&models.Notification{
		ID: notificationID, UserID: ownerID,
	}, nil)
	repo.On("MarkAsRead", ctx, notificationID).Return(nil)

	err := svc.MarkAsRead(ctx, notificationID, uuid.New())
	assert.Error(t, err)
	repo.AssertNotCalled(t, "MarkAsRead", mock.Anything, mock.Anything)

	err = svc.MarkAsRead(ctx, notificationID, ownerID)
	assert.NoError(t, err)
}

func TestNotificationService_ListNotifications_NormalizesPagination(t *testing.T) {
	repo := new(mockNotificationRepo)
	svc := NewNotificationService(repo, nil)
	ctx := context.Background()

	userID := uuid.New()
	repo.On("List", ctx, userID, 20, 0, true).Return([]models.Notification{}, nil)

	_, err := svc.ListNotifications(ctx, userID, -1, -10, true)
	assert.NoError(t, err)
	repo.AssertCalled(t, "List", ctx, userID, 20, 0, true)
}
