package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrAlreadyFinished — оркестрация уже в терминальном статусе.
	ErrAlreadyFinished = errors.New("orchestration already finished")

	// ErrTimeout — общий deadline оркестрации истёк.
	ErrTimeout = errors.New("orchestration timed out")

	// ErrStopped — оркестрация остановлена пользователем.
	ErrStopped = errors.New("stopped by user")
)
