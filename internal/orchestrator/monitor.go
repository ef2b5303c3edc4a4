package orchestrator

import (
	"context"
	"time"

	"github.com/shaiso/Consilium/internal/domain"
	"github.com/shaiso/Consilium/internal/telemetry"
)

// monitor ведёт одну оркестрацию до терминального статуса.
//
// dispatch=true — отправить первое сообщение стартовой роли (новая или
// восстановленная INITIATED-оркестрация); false — только мониторить.
func (s *Service) monitor(ctx context.Context, o *domain.OrchestrationResult, dispatch bool) {
	if dispatch {
		if !s.dispatch(ctx, o) {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			// Stop() или shutdown процесса финализируют снаружи.
			return
		default:
		}

		remaining := time.Until(o.Deadline)
		if remaining <= 0 {
			s.finalize(ctx, o, domain.StatusFailed, nil, ErrTimeout.Error())
			return
		}

		wait := min(s.pollInterval, remaining)

		completion, err := s.broker.WaitCompletion(ctx, o.ID, wait)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("wait completion failed, retrying",
				"workflow_id", o.ID,
				"error", err,
			)
			sleep(ctx, time.Second)
			continue
		}
		if completion == nil {
			// Тик ожидания; deadline проверяется на каждой итерации.
			continue
		}

		switch completion.Status {
		case domain.CompletionProgress:
			s.observeProgress(ctx, o, completion)

		case domain.CompletionComplete:
			s.finalize(ctx, o, domain.StatusCompleted, completion.Result, "")
			return

		case domain.CompletionError:
			s.finalize(ctx, o, domain.StatusFailed, nil, completion.Error)
			return

		default:
			s.logger.Warn("unknown completion status",
				"workflow_id", o.ID,
				"status", completion.Status,
			)
		}
	}
}

// dispatch отправляет первое сообщение стартовой роли и переводит
// оркестрацию в RUNNING.
func (s *Service) dispatch(ctx context.Context, o *domain.OrchestrationResult) bool {
	start, err := o.Graph.StartRole()
	if err != nil {
		// Ошибка конструкции графа: фатально, без retry.
		s.finalize(ctx, o, domain.StatusFailed, nil, err.Error())
		return false
	}

	msg := domain.NewWorkflowMessage(o.ID, o.Graph, start.ID, o.Query, o.ProjectPath, o.Priority, o.MaxRetries)
	if err := s.broker.Push(ctx, start.ID, msg); err != nil {
		s.finalize(ctx, o, domain.StatusFailed, nil, "dispatch: "+err.Error())
		return false
	}

	o.MarkRunning()
	o.CurrentRole = start.ID
	if err := s.store.Update(ctx, o); err != nil {
		s.logger.Error("failed to mark orchestration running",
			"workflow_id", o.ID,
			"error", err,
		)
	}

	s.logger.Info("workflow dispatched",
		"workflow_id", o.ID,
		"start_role", start.ID,
		"total_steps", len(o.Graph.Roles),
	)

	return true
}

// observeProgress обновляет наблюдаемость по PROGRESS-событию.
// Событие не завершает monitor-цикл.
func (s *Service) observeProgress(ctx context.Context, o *domain.OrchestrationResult, completion *domain.WorkflowCompletion) {
	next, _ := o.Graph.NextRole(completion.RoleID)
	o.CurrentRole = next

	if err := s.store.SetCurrentRole(ctx, o.ID, next); err != nil {
		s.logger.Warn("failed to update current role",
			"workflow_id", o.ID,
			"error", err,
		)
	}

	s.logger.Info("workflow progress",
		"workflow_id", o.ID,
		"finished_role", completion.RoleID,
		"current_role", next,
	)
}

// finalize фиксирует терминальный статус ровно один раз.
//
// Позднее событие (таймаут уже сработал, Stop уже вызван) обнаруживается
// и в памяти (Mark* возвращает false), и в реестре (guard в Update) —
// терминальный статус никогда не перезаписывается.
func (s *Service) finalize(ctx context.Context, o *domain.OrchestrationResult, status domain.OrchestrationStatus, result *domain.FinalResult, errMsg string) {
	var transitioned bool
	switch status {
	case domain.StatusCompleted:
		transitioned = o.MarkCompleted(result)
	default:
		transitioned = o.MarkFailed(errMsg)
	}

	if !transitioned {
		s.logger.Debug("late completion discarded",
			"workflow_id", o.ID,
			"status", o.Status,
		)
		return
	}

	if err := s.store.Update(ctx, o); err != nil {
		s.logger.Error("failed to store terminal status",
			"workflow_id", o.ID,
			"status", o.Status,
			"error", err,
		)
	}

	if err := s.broker.CleanupWorkflow(ctx, o.ID); err != nil {
		s.logger.Warn("workflow cleanup failed",
			"workflow_id", o.ID,
			"error", err,
		)
	}

	telemetry.OrchestrationsTotal.WithLabelValues(string(o.Status)).Inc()

	s.logger.Info("orchestration finished",
		"workflow_id", o.ID,
		"status", o.Status,
		"duration", o.Duration(),
		"error", errMsg,
	)
}

// sleep ждёт d или отмену контекста.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
