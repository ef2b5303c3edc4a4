package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoleResult — результат анализа одной роли.
type RoleResult struct {
	// Role — идентификатор роли, выполнившей анализ.
	Role string `json:"role"`

	// Output — текст анализа, возвращённый analysis executor'ом.
	Output string `json:"output"`

	// Timestamp — время завершения анализа.
	Timestamp time.Time `json:"timestamp"`
}

// MessageInput — накапливаемый контекст, передаваемый от роли к роли.
type MessageInput struct {
	// OriginalQuery — исходный запрос пользователя.
	OriginalQuery string `json:"original_query"`

	// ProjectPath — путь к анализируемому проекту.
	ProjectPath string `json:"project_path"`

	// AccumulatedResults — результаты всех предыдущих ролей по порядку.
	AccumulatedResults []RoleResult `json:"accumulated_results,omitempty"`

	// ContextFromPrevious — контекст, переданный предыдущей ролью
	// согласно ContextMapping её исходящего ребра.
	ContextFromPrevious map[string]any `json:"context_from_previous,omitempty"`
}

// MessageMetadata — служебные данные сообщения.
type MessageMetadata struct {
	// Step — номер шага, монотонно растёт от 1 до TotalSteps.
	Step int `json:"step"`

	// TotalSteps — количество ролей в графе.
	TotalSteps int `json:"total_steps"`

	// Timestamp — время создания сообщения.
	Timestamp time.Time `json:"timestamp"`

	// Priority — приоритет workflow.
	Priority Priority `json:"priority"`

	// RetryCount — количество уже выполненных повторов. Инвариант:
	// RetryCount ≤ MaxRetries, нарушение ведёт в dead-letter.
	RetryCount int `json:"retry_count"`

	// MaxRetries — максимальное количество повторов для этого workflow.
	MaxRetries int `json:"max_retries"`
}

// WorkflowMessage — единица работы, адресованная одной роли.
//
// Создаётся оркестратором (step=1) или ролью при передаче следующей
// (step+1). Успешно обработанное сообщение потребляется ровно один раз;
// при ошибке перекладывается в очередь с RetryCount+1, после исчерпания
// retry уходит в dead-letter.
type WorkflowMessage struct {
	// WorkflowID — глобально уникальный идентификатор workflow.
	// Единственный routing key для completion-канала и active-role маркера.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// RoleID — роль-получатель сообщения.
	RoleID string `json:"role_id"`

	// PreviousRole — роль, передавшая сообщение (пусто для первого шага).
	PreviousRole string `json:"previous_role,omitempty"`

	// Graph — граф workflow. Передаётся в каждом сообщении, чтобы роль
	// определяла следующего участника по рёбрам без обращения к БД.
	Graph *WorkflowGraph `json:"graph"`

	Input    MessageInput    `json:"input"`
	Metadata MessageMetadata `json:"metadata"`
}

// NewWorkflowMessage создаёт первое сообщение workflow (step=1).
func NewWorkflowMessage(workflowID uuid.UUID, graph *WorkflowGraph, startRole, query, projectPath string, priority Priority, maxRetries int) *WorkflowMessage {
	return &WorkflowMessage{
		WorkflowID: workflowID,
		RoleID:     startRole,
		Graph:      graph,
		Input: MessageInput{
			OriginalQuery: query,
			ProjectPath:   projectPath,
		},
		Metadata: MessageMetadata{
			Step:       1,
			TotalSteps: len(graph.Roles),
			Timestamp:  time.Now().UTC(),
			Priority:   priority,
			MaxRetries: maxRetries,
		},
	}
}

// Forward строит сообщение для следующей роли: step+1, результат текущей
// роли добавлен в AccumulatedResults, контекст собран по ContextMapping.
func (m *WorkflowMessage) Forward(nextRole string, result RoleResult, contextFromPrevious map[string]any) *WorkflowMessage {
	accumulated := make([]RoleResult, 0, len(m.Input.AccumulatedResults)+1)
	accumulated = append(accumulated, m.Input.AccumulatedResults...)
	accumulated = append(accumulated, result)

	return &WorkflowMessage{
		WorkflowID:   m.WorkflowID,
		RoleID:       nextRole,
		PreviousRole: m.RoleID,
		Graph:        m.Graph,
		Input: MessageInput{
			OriginalQuery:       m.Input.OriginalQuery,
			ProjectPath:         m.Input.ProjectPath,
			AccumulatedResults:  accumulated,
			ContextFromPrevious: contextFromPrevious,
		},
		Metadata: MessageMetadata{
			Step:       m.Metadata.Step + 1,
			TotalSteps: m.Metadata.TotalSteps,
			Timestamp:  time.Now().UTC(),
			Priority:   m.Metadata.Priority,
			MaxRetries: m.Metadata.MaxRetries,
		},
	}
}

// Retry строит копию сообщения для повторной обработки (RetryCount+1).
func (m *WorkflowMessage) Retry() *WorkflowMessage {
	retried := *m
	retried.Metadata.RetryCount++
	retried.Metadata.Timestamp = time.Now().UTC()
	return &retried
}

// CanRetry проверяет, остались ли попытки.
func (m *WorkflowMessage) CanRetry() bool {
	return m.Metadata.RetryCount < m.Metadata.MaxRetries
}

// WorkflowCompletion — событие статуса workflow, публикуемое ролью.
//
// Потребляется monitor-циклом оркестратора, не повторяется.
type WorkflowCompletion struct {
	WorkflowID uuid.UUID        `json:"workflow_id"`
	RoleID     string           `json:"role_id"`
	Status     CompletionStatus `json:"status"`

	// Result — финальный результат workflow (только для COMPLETE).
	Result *FinalResult `json:"result,omitempty"`

	// Output — результат шага роли (для PROGRESS).
	Output string `json:"output,omitempty"`

	// Error — текст ошибки для статуса ERROR.
	Error string `json:"error,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// FinalResult — синтезированный результат workflow.
type FinalResult struct {
	// FinalAnalysis — результат терминальной роли.
	FinalAnalysis string `json:"final_analysis"`

	// AllAnalyses — результаты всех ролей по порядку выполнения.
	AllAnalyses []RoleResult `json:"all_analyses,omitempty"`

	// Summary — краткая сводка по участвовавшим ролям.
	Summary string `json:"summary,omitempty"`
}
