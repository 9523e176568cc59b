package dto

import "github.com/dreschagin/crm-dashboard/internal/domain/valueobject"

// ResultState - состояние загрузки данных для UI
type ResultState string

const (
	ResultPending ResultState = "pending"
	ResultFailed  ResultState = "failed"
	ResultReady   ResultState = "ready"
)

// Result - явный результат с тремя состояниями: Pending | Failed(reason) | Ready(data)
type Result[T any] struct {
	State   ResultState               `json:"state"`
	Reason  valueobject.FailureReason `json:"reason,omitempty"`
	Message string                    `json:"message,omitempty"`
	Data    *T                        `json:"data,omitempty"`
}

// Pending возвращает результат "загрузка еще не завершена"
func Pending[T any]() Result[T] {
	return Result[T]{State: ResultPending}
}

// Failed возвращает результат с причиной ошибки
func Failed[T any](reason valueobject.FailureReason, message string) Result[T] {
	return Result[T]{
		State:   ResultFailed,
		Reason:  reason,
		Message: message,
	}
}

// Ready возвращает успешный результат
func Ready[T any](data *T) Result[T] {
	return Result[T]{
		State: ResultReady,
		Data:  data,
	}
}

// IsReady проверяет, что данные готовы
func (r Result[T]) IsReady() bool {
	return r.State == ResultReady && r.Data != nil
}

// IsFailed проверяет, что загрузка завершилась ошибкой
func (r Result[T]) IsFailed() bool {
	return r.State == ResultFailed
}
