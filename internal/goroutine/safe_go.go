package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/ignatzorin/uslugi-backend/internal/logger"
)

// SafeGo запускает fn в отдельной горутине и перехватывает панику: упавшая
// фоновая задача логируется со стеком и не роняет процесс.
func SafeGo(fn func()) {
	go func() {
		defer logPanic()
		fn()
	}()
}

// SafeGoWithContext запускает fn с контекстом и перехватом паники.
// Используется шиной событий: паника одного подписчика не задевает остальных.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer logPanic()
		fn(ctx)
	}()
}

func logPanic() {
	if r := recover(); r != nil && logger.Log != nil {
		logger.Log.Errorf("goroutine: паника в фоновой задаче: %v\n%s", r, debug.Stack())
	}
}
