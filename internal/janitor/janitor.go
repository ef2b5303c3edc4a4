package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/shaiso/Consilium/internal/queue"
	"github.com/shaiso/Consilium/internal/telemetry"
)

// defaultRetention — срок хранения терминальных оркестраций.
const defaultRetention = 7 * 24 * time.Hour

// Cron-выражения задач (формат с секундами).
const (
	specDepthRefresh = "*/15 * * * * *"
	specFailStale    = "0 * * * * *"
	specPurge        = "0 0 * * * *"
)

// Registry — операции реестра оркестраций, нужные janitor'у.
type Registry interface {
	FailStale(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	PurgeTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Broker — операции очереди, нужные janitor'у.
type Broker interface {
	CleanupWorkflow(ctx context.Context, workflowID uuid.UUID) error
	AllDepths(ctx context.Context) (map[string]queue.DepthInfo, error)
}

// Janitor — фоновый уборщик.
type Janitor struct {
	registry  Registry
	broker    Broker
	retention time.Duration
	logger    *slog.Logger

	cron *cron.Cron
}

// Config — конфигурация Janitor.
type Config struct {
	Registry Registry
	Broker   Broker

	// Retention — срок хранения терминальных оркестраций (default: 7d).
	Retention time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт Janitor.
func New(cfg Config) *Janitor {
	retention := cfg.Retention
	if retention <= 0 {
		retention = defaultRetention
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Janitor{
		registry:  cfg.Registry,
		broker:    cfg.Broker,
		retention: retention,
		logger:    logger,
		cron:      cron.New(cron.WithSeconds()),
	}
}

// Start регистрирует задачи и запускает cron.
func (j *Janitor) Start(ctx context.Context) error {
	jobs := []struct {
		spec string
		name string
		run  func(context.Context)
	}{
		{specDepthRefresh, "queue depth refresh", j.refreshDepths},
		{specFailStale, "fail stale orchestrations", j.failStale},
		{specPurge, "purge terminal orchestrations", j.purge},
	}

	for _, job := range jobs {
		run := job.run
		if _, err := j.cron.AddFunc(job.spec, func() { run(ctx) }); err != nil {
			return fmt.Errorf("schedule %s: %w", job.name, err)
		}
	}

	j.cron.Start()
	j.logger.Info("janitor started", "retention", j.retention)
	return nil
}

// Stop останавливает cron и ждёт завершения выполняющихся задач.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("janitor stopped")
}

// failStale помечает FAILED оркестрации с истёкшим deadline и удаляет
// их состояние в очереди.
func (j *Janitor) failStale(ctx context.Context) {
	ids, err := j.registry.FailStale(ctx, time.Now().UTC())
	if err != nil {
		j.logger.Error("fail stale orchestrations failed", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	for _, id := range ids {
		telemetry.OrchestrationsTotal.WithLabelValues("FAILED").Inc()
		if err := j.broker.CleanupWorkflow(ctx, id); err != nil {
			j.logger.Warn("cleanup of stale workflow failed",
				"workflow_id", id,
				"error", err,
			)
		}
	}

	j.logger.Info("stale orchestrations failed", "count", len(ids))
}

// purge удаляет терминальные записи старше retention.
func (j *Janitor) purge(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-j.retention)

	purged, err := j.registry.PurgeTerminalBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("purge orchestrations failed", "error", err)
		return
	}
	if purged > 0 {
		j.logger.Info("terminal orchestrations purged", "count", purged, "cutoff", cutoff)
	}
}

// refreshDepths обновляет gauge глубины очередей ролей.
func (j *Janitor) refreshDepths(ctx context.Context) {
	depths, err := j.broker.AllDepths(ctx)
	if err != nil {
		j.logger.Debug("queue depth refresh failed", "error", err)
		return
	}

	for roleID, depth := range depths {
		telemetry.QueueDepth.WithLabelValues(roleID, "work").Set(float64(depth.Ready))
		telemetry.QueueDepth.WithLabelValues(roleID, "deadletter").Set(float64(depth.DeadLettered))
	}
}
