package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/uslugi-backend/internal/events"
	"github.com/ignatzorin/uslugi-backend/internal/logger"
	"github.com/ignatzorin/uslugi-backend/internal/models"
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// Pusher доставляет событие в живые подключения пользователя.
type Pusher interface {
	Push(userID uuid.UUID, event string, data interface{}) error
}

// NotificationService — диспетчер уведомлений. Сначала durable-запись в БД,
// затем best-effort доставка по WebSocket: обрыв доставки никогда не ломает
// породившую уведомление бизнес-операцию.
type NotificationService struct {
	repo   NotificationRepository
	pusher Pusher
}

// NewNotificationService создаёт новый сервис уведомлений.
func NewNotificationService(repo NotificationRepository, pusher Pusher) *NotificationService {
	return &NotificationService{repo: repo, pusher: pusher}
}

// HandleEvent — подписчик шины доменных событий.
func (s *NotificationService) HandleEvent(ctx context.Context, event events.Event) {
	if err := s.Notify(ctx, event.Recipient, event.Type, event.Title, event.Message, event.Payload); err != nil {
		if logger.Log != nil {
			logger.Log.Errorf("notification service: не удалось обработать событие %s: %v", event.Type, err)
		}
	}
}

// Notify сохраняет уведомление и пытается доставить его realtime.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, ntype, title, message string, payload map[string]interface{}) error {
	var raw json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("notification service: marshal payload %w", err)
		}
		raw = encoded
	}

	notification := &models.Notification{
		UserID:  userID,
		Type:    ntype,
		Title:   title,
		Message: message,
		Payload: raw,
		IsRead:  false,
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	// Push — best effort: получатель без подключений заберёт запись поллингом.
	if s.pusher != nil {
		if err := s.pusher.Push(userID, ntype, notification); err != nil {
			if logger.Log != nil {
				logger.Log.Warnf("notification service: realtime доставка не удалась: %v", err)
			}
		}
	}

	return nil
}

// GetNotification возвращает уведомление по идентификатору.
func (s *NotificationService) GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	return s.repo.GetByID(ctx, id)
}

// ListNotifications возвращает список уведомлений пользователя.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.List(ctx, userID, limit, offset, unreadOnly)
}

// MarkAsRead отмечает уведомление как прочитанное.
func (s *NotificationService) MarkAsRead(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if notification.UserID != userID {
		return fmt.Errorf("notification service: у вас нет прав на это уведомление")
	}

	return s.repo.MarkAsRead(ctx, id)
}

// MarkAllAsRead отмечает все уведомления пользователя как прочитанные.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
