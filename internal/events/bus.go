package events

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/uslugi-backend/internal/goroutine"
)

// Event описывает доменное событие, адресованное конкретному пользователю.
// Бизнес-логика публикует события, подписчики (диспетчер уведомлений) сами
// решают, как их доставлять.
type Event struct {
	Recipient uuid.UUID
	Type      string
	Title     string
	Message   string
	Payload   map[string]interface{}
}

// Handler обрабатывает событие. Ошибки доставки не возвращаются публикующей
// стороне: падение подписчика не должно ломать бизнес-операцию.
type Handler func(ctx context.Context, event Event)

// Publisher публикует доменные события. Сервисы зависят от интерфейса,
// чтобы в тестах подменять шину синхронной записью.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Bus — внутрипроцессная шина доменных событий.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus создаёт пустую шину.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe регистрирует обработчик событий.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish асинхронно рассылает событие всем подписчикам. Каждый обработчик
// выполняется в отдельной горутине с recovery, чтобы паника одного
// подписчика не задела остальных.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h := h
		goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
			h(ctx, event)
		})
	}
}
