package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Consilium/internal/domain"
	"github.com/shaiso/Consilium/internal/roles"
	"github.com/shaiso/Consilium/internal/telemetry"
)

// Default configuration values.
const (
	defaultPopTimeout = 30 * time.Second
	brokerRetryPause  = time.Second
)

// Broker — операции очереди, нужные воркеру.
type Broker interface {
	PopBlocking(ctx context.Context, roleID string, timeout time.Duration) (*domain.WorkflowMessage, error)
	Push(ctx context.Context, roleID string, msg *domain.WorkflowMessage) error
	PublishCompletion(ctx context.Context, workflowID uuid.UUID, completion *domain.WorkflowCompletion) error
	DeadLetter(ctx context.Context, roleID string, msg *domain.WorkflowMessage, cause error) error
}

// Worker — цикл обработки одной роли.
//
// Вся координация идёт через Broker, разделяемой памяти между
// воркерами нет.
type Worker struct {
	roleID   string
	broker   Broker
	catalog  roles.Catalog
	analyzer Analyzer

	backoff         Backoff
	popTimeout      time.Duration
	analysisTimeout time.Duration

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Worker.
type Config struct {
	// RoleID — роль, которую обслуживает воркер.
	RoleID string

	// Broker — очередь сообщений.
	Broker Broker

	// Catalog — каталог определений ролей.
	Catalog roles.Catalog

	// Analyzer — внешний analysis executor.
	Analyzer Analyzer

	// Backoff — политика задержки retry (default: DefaultBackoff).
	Backoff *Backoff

	// PopTimeout — таймаут блокирующего pop; точка проверки остановки
	// (default: 30s).
	PopTimeout time.Duration

	// AnalysisTimeout — таймаут одного вызова analysis executor'а
	// (default: 120s).
	AnalysisTimeout time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт Worker.
func New(cfg Config) *Worker {
	popTimeout := cfg.PopTimeout
	if popTimeout <= 0 {
		popTimeout = defaultPopTimeout
	}

	analysisTimeout := cfg.AnalysisTimeout
	if analysisTimeout <= 0 {
		analysisTimeout = defaultAnalysisTimeout
	}

	backoff := DefaultBackoff()
	if cfg.Backoff != nil {
		backoff = *cfg.Backoff
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		roleID:          cfg.RoleID,
		broker:          cfg.Broker,
		catalog:         cfg.Catalog,
		analyzer:        cfg.Analyzer,
		backoff:         backoff,
		popTimeout:      popTimeout,
		analysisTimeout: analysisTimeout,
		logger:          logger.With("role", cfg.RoleID),
	}
}

// Start запускает цикл воркера в отдельной горутине.
func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting role worker",
		"pop_timeout", w.popTimeout,
		"analysis_timeout", w.analysisTimeout,
	)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
}

// Stop останавливает воркер и ждёт завершения цикла.
func (w *Worker) Stop() {
	w.logger.Info("stopping role worker...")
	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.wg.Wait()
	w.logger.Info("role worker stopped")
}

// loop — основной цикл: pop → process, до отмены контекста.
func (w *Worker) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := w.broker.PopBlocking(ctx, w.roleID, w.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("pop failed, backing off", "error", err)
			sleep(ctx, brokerRetryPause)
			continue
		}
		if msg == nil {
			// Таймаут — штатная точка проверки остановки.
			continue
		}

		w.process(ctx, msg)
	}
}

// process обрабатывает одно сообщение. Ошибки обработки уходят в
// handleFailure, цикл продолжается в любом случае.
func (w *Worker) process(ctx context.Context, msg *domain.WorkflowMessage) {
	started := time.Now()

	w.logger.Info("processing workflow step",
		"workflow_id", msg.WorkflowID,
		"step", msg.Metadata.Step,
		"total_steps", msg.Metadata.TotalSteps,
		"attempt", msg.Metadata.RetryCount+1,
	)

	output, err := w.analyze(ctx, msg)
	if err != nil {
		w.handleFailure(ctx, msg, err)
		return
	}

	telemetry.RoleProcessingSeconds.WithLabelValues(w.roleID).Observe(time.Since(started).Seconds())

	result := domain.RoleResult{
		Role:      w.roleID,
		Output:    output,
		Timestamp: time.Now().UTC(),
	}

	// Следующая роль определяется рёбрами графа этого workflow,
	// а не фиксированной глобальной таблицей.
	if nextRole, ok := msg.Graph.NextRole(w.roleID); ok {
		w.forward(ctx, msg, nextRole, result)
		return
	}

	w.complete(ctx, msg, result)
}

// analyze строит контекст роли, рендерит промпт и вызывает
// analysis executor.
func (w *Worker) analyze(ctx context.Context, msg *domain.WorkflowMessage) (string, error) {
	if msg.RoleID != w.roleID {
		return "", fmt.Errorf("%w: got %s, serving %s", ErrRoleMismatch, msg.RoleID, w.roleID)
	}
	// Без графа невозможна маршрутизация после анализа.
	if msg.Graph == nil {
		return "", fmt.Errorf("%w: missing workflow graph", ErrMalformedMessage)
	}

	def, err := w.catalog.Get(msg.RoleID)
	if err != nil {
		return "", err
	}

	prompt, err := def.RenderPrompt(roles.PromptData{
		Query:            msg.Input.OriginalQuery,
		ProjectPath:      msg.Input.ProjectPath,
		Focus:            def.ContextRequirements,
		PreviousAnalyses: joinAnalyses(msg.Input.AccumulatedResults),
	})
	if err != nil {
		return "", err
	}

	// Единственная точка, где обработка покидает процесс (кроме очереди).
	result, err := w.analyzer.Analyze(ctx, AnalysisRequest{
		Prompt:        prompt,
		Tools:         def.Tools,
		ProjectPath:   msg.Input.ProjectPath,
		TimeoutMillis: w.analysisTimeout.Milliseconds(),
	})
	if err != nil {
		return "", err
	}
	if !result.Success {
		return "", fmt.Errorf("%w: %s", ErrAnalysisFailed, result.Error)
	}

	return result.Data, nil
}

// forward передаёт работу следующей роли и публикует PROGRESS-событие.
func (w *Worker) forward(ctx context.Context, msg *domain.WorkflowMessage, nextRole string, result domain.RoleResult) {
	contextFromPrevious := map[string]any{}
	if edge, ok := msg.Graph.Edge(w.roleID); ok {
		for _, key := range edge.Context.Transform {
			contextFromPrevious[key] = result.Output
		}
	}

	forwarded := msg.Forward(nextRole, result, contextFromPrevious)
	if err := w.broker.Push(ctx, nextRole, forwarded); err != nil {
		w.handleFailure(ctx, msg, fmt.Errorf("forward to %s: %w", nextRole, err))
		return
	}

	w.publishCompletion(ctx, &domain.WorkflowCompletion{
		WorkflowID: msg.WorkflowID,
		RoleID:     w.roleID,
		Status:     domain.CompletionProgress,
		Output:     result.Output,
		Timestamp:  time.Now().UTC(),
	})

	w.logger.Info("workflow step forwarded",
		"workflow_id", msg.WorkflowID,
		"next_role", nextRole,
		"step", forwarded.Metadata.Step,
	)
}

// complete публикует финальный результат терминальной роли.
func (w *Worker) complete(ctx context.Context, msg *domain.WorkflowMessage, result domain.RoleResult) {
	allAnalyses := make([]domain.RoleResult, 0, len(msg.Input.AccumulatedResults)+1)
	allAnalyses = append(allAnalyses, msg.Input.AccumulatedResults...)
	allAnalyses = append(allAnalyses, result)

	w.publishCompletion(ctx, &domain.WorkflowCompletion{
		WorkflowID: msg.WorkflowID,
		RoleID:     w.roleID,
		Status:     domain.CompletionComplete,
		Result: &domain.FinalResult{
			FinalAnalysis: result.Output,
			AllAnalyses:   allAnalyses,
			Summary:       summarize(allAnalyses),
		},
		Timestamp: time.Now().UTC(),
	})

	w.logger.Info("workflow completed",
		"workflow_id", msg.WorkflowID,
		"steps", msg.Metadata.Step,
	)
}

// handleFailure — retry с backoff или dead-letter после исчерпания попыток.
func (w *Worker) handleFailure(ctx context.Context, msg *domain.WorkflowMessage, cause error) {
	if msg.CanRetry() {
		retried := msg.Retry()
		delay := w.backoff.Delay(retried.Metadata.RetryCount)

		w.logger.Warn("step failed, retrying",
			"workflow_id", msg.WorkflowID,
			"retry_count", retried.Metadata.RetryCount,
			"max_retries", retried.Metadata.MaxRetries,
			"delay", delay,
			"error", cause,
		)

		telemetry.RoleRetriesTotal.WithLabelValues(w.roleID).Inc()
		sleep(ctx, delay)

		err := w.broker.Push(ctx, w.roleID, retried)
		if err == nil {
			return
		}
		// Не смогли вернуть в очередь — сохраняем сообщение в DLQ,
		// иначе оно потеряется.
		cause = errors.Join(cause, err)
	}

	w.logger.Error("step failed permanently, dead-lettering",
		"workflow_id", msg.WorkflowID,
		"retry_count", msg.Metadata.RetryCount,
		"error", cause,
	)

	telemetry.DeadLetterTotal.WithLabelValues(w.roleID).Inc()

	if err := w.broker.DeadLetter(ctx, w.roleID, msg, cause); err != nil {
		w.logger.Error("dead-letter failed", "workflow_id", msg.WorkflowID, "error", err)
	}

	w.publishCompletion(ctx, &domain.WorkflowCompletion{
		WorkflowID: msg.WorkflowID,
		RoleID:     w.roleID,
		Status:     domain.CompletionError,
		Error:      fmt.Sprintf("%v: %v", ErrRetryExhausted, cause),
		Timestamp:  time.Now().UTC(),
	})
}

// publishCompletion публикует событие, логируя сбой вместо возврата
// ошибки: завершение workflow подстрахует janitor по deadline.
func (w *Worker) publishCompletion(ctx context.Context, completion *domain.WorkflowCompletion) {
	if err := w.broker.PublishCompletion(ctx, completion.WorkflowID, completion); err != nil {
		w.logger.Error("failed to publish completion",
			"workflow_id", completion.WorkflowID,
			"status", completion.Status,
			"error", err,
		)
	}
}

// joinAnalyses склеивает результаты предыдущих ролей для промпта.
func joinAnalyses(results []domain.RoleResult) string {
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, r := range results {
		fmt.Fprintf(&sb, "## %s\n%s\n\n", r.Role, r.Output)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// summarize строит краткую сводку финального результата.
func summarize(results []domain.RoleResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Role
	}
	return fmt.Sprintf("%d roles completed: %s", len(results), strings.Join(parts, " → "))
}

// sleep ждёт d или отмену контекста.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
