package queue

import "errors"

// Ошибки брокера.
var (
	// ErrUnavailable — брокер недоступен или операция не выполнена.
	// Все операции Queue заворачивают инфраструктурные ошибки в ErrUnavailable;
	// вызывающие повторяют операцию на своём уровне.
	ErrUnavailable = errors.New("queue unavailable")

	// ErrClosed — соединение закрыто навсегда (graceful shutdown).
	ErrClosed = errors.New("queue connection closed")
)
