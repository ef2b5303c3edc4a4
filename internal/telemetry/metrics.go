package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики ядра. Экспортируются через promhttp на каждом процессе.
var (
	// OrchestrationsTotal — завершённые оркестрации по терминальному статусу.
	OrchestrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consilium_orchestrations_total",
		Help: "Orchestrations by terminal status.",
	}, []string{"status"})

	// RoleProcessingSeconds — длительность обработки шага роли.
	RoleProcessingSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "consilium_role_processing_seconds",
		Help:    "Duration of a single role analysis step.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"role"})

	// RoleRetriesTotal — повторы обработки по ролям.
	RoleRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consilium_role_retries_total",
		Help: "Message retries by role.",
	}, []string{"role"})

	// DeadLetterTotal — сообщения, ушедшие в dead-letter, по ролям.
	DeadLetterTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consilium_deadletter_total",
		Help: "Messages dead-lettered after retry exhaustion, by role.",
	}, []string{"role"})

	// QueueDepth — текущая глубина очередей ролей.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "consilium_queue_depth",
		Help: "Current queue depth by role and kind (work|deadletter).",
	}, []string{"role", "kind"})
)
