package domain

// OrchestrationStatus — статус выполнения оркестрации.
//
// Жизненный цикл:
//
//	INITIATED → RUNNING → COMPLETED
//	                    ↘ FAILED
//	          (или) → FAILED (ошибка построения графа, stop, timeout)
type OrchestrationStatus string

const (
	// StatusInitiated — оркестрация создана, первое сообщение ещё не отправлено.
	StatusInitiated OrchestrationStatus = "INITIATED"

	// StatusRunning — роли обрабатывают workflow.
	StatusRunning OrchestrationStatus = "RUNNING"

	// StatusCompleted — терминальная роль опубликовала финальный результат.
	StatusCompleted OrchestrationStatus = "COMPLETED"

	// StatusFailed — ошибка роли, таймаут или остановка пользователем.
	StatusFailed OrchestrationStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный (оркестрация завершена).
func (s OrchestrationStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// CompletionStatus — статус события completion, публикуемого ролью.
type CompletionStatus string

const (
	// CompletionProgress — роль завершила свой шаг, workflow продолжается.
	CompletionProgress CompletionStatus = "PROGRESS"

	// CompletionComplete — терминальная роль завершила workflow.
	CompletionComplete CompletionStatus = "COMPLETE"

	// CompletionError — роль исчерпала retry, workflow завершается с ошибкой.
	CompletionError CompletionStatus = "ERROR"
)

// IsTerminal возвращает true, если событие завершает мониторинг workflow.
func (s CompletionStatus) IsTerminal() bool {
	return s == CompletionComplete || s == CompletionError
}

// Priority — приоритет сообщения workflow.
//
// Приоритет — подсказка для операторов и метрик; очереди ролей
// остаются FIFO (см. контракт Queue).
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
)

// ParsePriority парсит строку в Priority. Неизвестные значения — NORMAL.
func ParsePriority(s string) Priority {
	switch s {
	case string(PriorityLow), "low":
		return PriorityLow
	case string(PriorityHigh), "high":
		return PriorityHigh
	default:
		return PriorityNormal
	}
}
