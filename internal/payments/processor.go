package payments

import (
	"context"
	"fmt"
)

// Processor описывает внешний платёжный процессинг. Все операции могут
// упасть; ошибки процессинга доносятся до вызывающего кода без локальных
// изменений состояния.
type Processor interface {
	// Authorize открывает авторизацию на сумму и возвращает ссылку на intent.
	Authorize(ctx context.Context, amount float64, metadata map[string]string) (string, error)
	// Confirm проверяет, что авторизация прошла, и захватывает средства.
	Confirm(ctx context.Context, intentRef string) error
	// Transfer переводит выплату на счёт исполнителя.
	Transfer(ctx context.Context, accountRef string, amount float64, metadata map[string]string) (string, error)
	// Refund возвращает средства клиенту по авторизации.
	Refund(ctx context.Context, intentRef, reason string) (string, error)
}

// ProcessorError — ошибка процессинга с кодом, который отдаётся клиенту.
type ProcessorError struct {
	Code    string
	Message string
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("processor: %s (%s)", e.Message, e.Code)
}
