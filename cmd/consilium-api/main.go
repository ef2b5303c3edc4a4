// Consilium API — управляющий процесс системы.
//
// Процесс:
//   - Принимает запросы на оркестрацию через HTTP API
//   - Строит граф workflow и отправляет первое сообщение стартовой роли
//   - Мониторит completion-события каждой активной оркестрации
//   - Восстанавливает monitor-циклы незавершённых оркестраций после рестарта
//   - Запускает janitor: таймауты, очистка очередей, retention, метрики
//
// Воркеры ролей — отдельные процессы (consilium-worker).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Consilium/internal/api"
	"github.com/shaiso/Consilium/internal/graph"
	"github.com/shaiso/Consilium/internal/janitor"
	"github.com/shaiso/Consilium/internal/orchestrator"
	"github.com/shaiso/Consilium/internal/queue"
	"github.com/shaiso/Consilium/internal/repo"
	"github.com/shaiso/Consilium/internal/roles"
	"github.com/shaiso/Consilium/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting consilium-api")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repo.EnsureSchema(ctx, pool); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// RabbitMQ
	conn, err := queue.Connect(queue.DefaultURL(), logger)
	if err != nil {
		logger.Error("failed to connect to message broker", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	catalog := roles.DefaultCatalog()

	q, err := queue.New(conn, logger, roles.IDs(catalog))
	if err != nil {
		logger.Error("failed to declare queue topology", "error", err)
		os.Exit(1)
	}
	defer q.Close()
	logger.Info("message broker connected", "roles", roles.IDs(catalog))

	// Оркестратор
	registry := repo.NewOrchestrationRepo(pool)

	orch := orchestrator.New(orchestrator.Config{
		Store:        registry,
		Broker:       q,
		Builder:      graph.NewBuilder(catalog),
		Timeout:      time.Duration(envInt("ORCH_TIMEOUT_MIN", 30)) * time.Minute,
		PollInterval: time.Duration(envInt("ORCH_POLL_SEC", 5)) * time.Second,
		Logger:       logger,
	})
	defer orch.Shutdown()

	// Переподключаем monitor-циклы незавершённых оркестраций
	if _, err := orch.Recover(ctx); err != nil {
		logger.Error("failed to recover orchestrations", "error", err)
		os.Exit(1)
	}

	// Janitor: таймауты, retention, метрики глубины очередей
	jan := janitor.New(janitor.Config{
		Registry: registry,
		Broker:   q,
		Logger:   logger,
	})
	if err := jan.Start(ctx); err != nil {
		logger.Error("failed to start janitor", "error", err)
		os.Exit(1)
	}
	defer jan.Stop()

	// HTTP API
	handler := api.NewHandler(api.Config{
		Orchestrator: orch,
		Queue:        q,
		Logger:       logger,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	handler.RegisterRoutes(mux)

	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("consilium-api stopped")
}

// envInt читает целочисленную переменную окружения с fallback.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
