package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrchestrationResult — живое/завершённое состояние одной оркестрации.
//
// Создаётся при Orchestrate(); изменяется оркестратором по мере прихода
// completion-событий, ошибок и таймаутов. Переходы статуса строго
// односторонние: терминальное состояние никогда не перезаписывается,
// поздние completion-события отбрасываются.
type OrchestrationResult struct {
	// ID — идентификатор оркестрации. Используется и как workflowID
	// для маршрутизации в очереди.
	ID uuid.UUID `json:"orchestration_id"`

	// Query — исходный запрос пользователя.
	Query string `json:"query"`

	// ProjectPath — путь к анализируемому проекту.
	ProjectPath string `json:"project_path"`

	// Graph — построенный план workflow.
	Graph *WorkflowGraph `json:"workflow_graph"`

	// Status — текущий статус оркестрации.
	Status OrchestrationStatus `json:"status"`

	// CurrentRole — роль, обрабатывающая workflow в данный момент
	// (только для наблюдаемости, обновляется по PROGRESS-событиям).
	CurrentRole string `json:"current_role,omitempty"`

	// MaxRetries и Priority — параметры, заданные при запуске.
	MaxRetries int      `json:"max_retries"`
	Priority   Priority `json:"priority"`

	// StartedAt — время создания оркестрации.
	StartedAt time.Time `json:"started_at"`

	// Deadline — момент, после которого monitor-цикл завершает
	// оркестрацию с ошибкой таймаута.
	Deadline time.Time `json:"deadline"`

	// FinishedAt — время достижения терминального статуса.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// FinalResult — результат завершённого workflow.
	FinalResult *FinalResult `json:"final_result,omitempty"`

	// Error — текст ошибки для статуса FAILED.
	Error string `json:"error,omitempty"`
}

// IsFinished возвращает true, если оркестрация завершена.
func (o *OrchestrationResult) IsFinished() bool {
	return o.Status.IsTerminal()
}

// MarkRunning переводит оркестрацию в RUNNING.
// Возвращает false, если статус уже терминальный.
func (o *OrchestrationResult) MarkRunning() bool {
	if o.Status.IsTerminal() {
		return false
	}
	o.Status = StatusRunning
	return true
}

// MarkCompleted переводит оркестрацию в COMPLETED с финальным результатом.
// Возвращает false, если статус уже терминальный (позднее событие).
func (o *OrchestrationResult) MarkCompleted(result *FinalResult) bool {
	if o.Status.IsTerminal() {
		return false
	}
	now := time.Now().UTC()
	o.Status = StatusCompleted
	o.FinalResult = result
	o.FinishedAt = &now
	o.CurrentRole = ""
	return true
}

// MarkFailed переводит оркестрацию в FAILED с ошибкой.
// Возвращает false, если статус уже терминальный (позднее событие).
func (o *OrchestrationResult) MarkFailed(errMsg string) bool {
	if o.Status.IsTerminal() {
		return false
	}
	now := time.Now().UTC()
	o.Status = StatusFailed
	o.Error = errMsg
	o.FinishedAt = &now
	o.CurrentRole = ""
	return true
}

// Duration возвращает продолжительность оркестрации.
// Возвращает 0, если оркестрация ещё не завершена.
func (o *OrchestrationResult) Duration() time.Duration {
	if o.FinishedAt == nil {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}
