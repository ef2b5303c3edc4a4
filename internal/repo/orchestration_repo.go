package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Consilium/internal/domain"
)

// OrchestrationRepo — персистентный реестр оркестраций.
//
// Заменяет process-local map исходной реализации: состояние переживает
// рестарт, а Recover() оркестратора переподключает monitor-циклы к
// незавершённым записям.
type OrchestrationRepo struct {
	pool *pgxpool.Pool
}

// NewOrchestrationRepo создаёт OrchestrationRepo.
func NewOrchestrationRepo(pool *pgxpool.Pool) *OrchestrationRepo {
	return &OrchestrationRepo{pool: pool}
}

const orchestrationColumns = `
	id, query, project_path, graph, status, current_role,
	final_result, error, max_retries, priority,
	started_at, deadline, finished_at
`

// Create сохраняет новую оркестрацию.
func (r *OrchestrationRepo) Create(ctx context.Context, o *domain.OrchestrationResult) error {
	graphJSON, err := json.Marshal(o.Graph)
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}

	query := `
		INSERT INTO orchestrations
			(id, query, project_path, graph, status, current_role,
			 max_retries, priority, started_at, deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.pool.Exec(ctx, query,
		o.ID,
		o.Query,
		o.ProjectPath,
		graphJSON,
		o.Status,
		o.CurrentRole,
		o.MaxRetries,
		o.Priority,
		o.StartedAt,
		o.Deadline,
	)
	if err != nil {
		return fmt.Errorf("insert orchestration: %w", err)
	}
	return nil
}

// GetByID возвращает оркестрацию по ID.
func (r *OrchestrationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.OrchestrationResult, error) {
	query := `SELECT ` + orchestrationColumns + ` FROM orchestrations WHERE id = $1`
	return scanOrchestration(r.pool.QueryRow(ctx, query, id))
}

// List возвращает оркестрации, новые первыми.
func (r *OrchestrationRepo) List(ctx context.Context, limit, offset int) ([]domain.OrchestrationResult, error) {
	query := `
		SELECT ` + orchestrationColumns + `
		FROM orchestrations
		ORDER BY started_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.queryMany(ctx, query, limit, offset)
}

// ListUnfinished возвращает оркестрации в нетерминальных статусах
// (для Recover и janitor).
func (r *OrchestrationRepo) ListUnfinished(ctx context.Context) ([]domain.OrchestrationResult, error) {
	query := `
		SELECT ` + orchestrationColumns + `
		FROM orchestrations
		WHERE status IN ($1, $2)
		ORDER BY started_at ASC
	`
	return r.queryMany(ctx, query, domain.StatusInitiated, domain.StatusRunning)
}

// Update обновляет оркестрацию, отказываясь перезаписывать терминальную
// запись: позднее completion-событие не должно менять результат.
func (r *OrchestrationRepo) Update(ctx context.Context, o *domain.OrchestrationResult) error {
	var finalJSON []byte
	if o.FinalResult != nil {
		var err error
		finalJSON, err = json.Marshal(o.FinalResult)
		if err != nil {
			return fmt.Errorf("marshal final result: %w", err)
		}
	}

	query := `
		UPDATE orchestrations
		SET status = $2, current_role = $3, final_result = $4,
		    error = $5, finished_at = $6
		WHERE id = $1 AND status NOT IN ($7, $8)
	`
	result, err := r.pool.Exec(ctx, query,
		o.ID,
		o.Status,
		o.CurrentRole,
		finalJSON,
		nullString(o.Error),
		o.FinishedAt,
		domain.StatusCompleted,
		domain.StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("update orchestration: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Либо записи нет, либо она уже терминальна.
		existing, err := r.GetByID(ctx, o.ID)
		if err != nil {
			return err
		}
		if existing.Status.IsTerminal() {
			return ErrTerminal
		}
		return ErrNotFound
	}
	return nil
}

// SetCurrentRole обновляет текущую роль (наблюдаемость PROGRESS-событий).
// Терминальные записи не трогает.
func (r *OrchestrationRepo) SetCurrentRole(ctx context.Context, id uuid.UUID, roleID string) error {
	query := `
		UPDATE orchestrations
		SET current_role = $2
		WHERE id = $1 AND status NOT IN ($3, $4)
	`
	_, err := r.pool.Exec(ctx, query, id, roleID, domain.StatusCompleted, domain.StatusFailed)
	if err != nil {
		return fmt.Errorf("set current role: %w", err)
	}
	return nil
}

// FailStale переводит в FAILED незавершённые оркестрации с истёкшим
// deadline (подстраховка на случай гибели monitor-цикла).
// Возвращает идентификаторы затронутых оркестраций.
func (r *OrchestrationRepo) FailStale(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `
		UPDATE orchestrations
		SET status = $1, error = $2, finished_at = $3, current_role = ''
		WHERE status IN ($4, $5) AND deadline < $3
		RETURNING id
	`
	rows, err := r.pool.Query(ctx, query,
		domain.StatusFailed,
		"orchestration timed out",
		now,
		domain.StatusInitiated,
		domain.StatusRunning,
	)
	if err != nil {
		return nil, fmt.Errorf("fail stale orchestrations: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PurgeTerminalBefore удаляет терминальные записи старше cutoff.
func (r *OrchestrationRepo) PurgeTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM orchestrations
		WHERE status IN ($1, $2) AND finished_at < $3
	`
	result, err := r.pool.Exec(ctx, query, domain.StatusCompleted, domain.StatusFailed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge orchestrations: %w", err)
	}
	return result.RowsAffected(), nil
}

// --- Helpers ---

// queryMany выполняет запрос и сканирует все строки.
func (r *OrchestrationRepo) queryMany(ctx context.Context, query string, args ...any) ([]domain.OrchestrationResult, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orchestrations: %w", err)
	}
	defer rows.Close()

	var results []domain.OrchestrationResult
	for rows.Next() {
		o, err := scanOrchestration(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *o)
	}
	return results, rows.Err()
}

// rowScanner — общее подмножество pgx.Row и pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanOrchestration сканирует одну строку в OrchestrationResult.
func scanOrchestration(row rowScanner) (*domain.OrchestrationResult, error) {
	var o domain.OrchestrationResult
	var graphJSON, finalJSON []byte
	var errMsg *string

	err := row.Scan(
		&o.ID,
		&o.Query,
		&o.ProjectPath,
		&graphJSON,
		&o.Status,
		&o.CurrentRole,
		&finalJSON,
		&errMsg,
		&o.MaxRetries,
		&o.Priority,
		&o.StartedAt,
		&o.Deadline,
		&o.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan orchestration: %w", err)
	}

	if err := json.Unmarshal(graphJSON, &o.Graph); err != nil {
		return nil, fmt.Errorf("unmarshal graph: %w", err)
	}
	if finalJSON != nil {
		if err := json.Unmarshal(finalJSON, &o.FinalResult); err != nil {
			return nil, fmt.Errorf("unmarshal final result: %w", err)
		}
	}
	if errMsg != nil {
		o.Error = *errMsg
	}

	return &o, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
