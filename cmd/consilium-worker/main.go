// Consilium Worker — обрабатывает шаги ролей.
//
// Worker:
//   - Блокирующе читает сообщения из очередей своих ролей
//   - Вызывает внешний analysis executor с промптом роли
//   - Передаёт workflow следующей роли по рёбрам графа
//   - Реализует retry с exponential backoff и dead-letter
//
// Один процесс может обслуживать несколько ролей (WORKER_ROLES);
// процессы масштабируются горизонтально — очереди ролей работают
// по схеме competing consumers.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Consilium/internal/queue"
	"github.com/shaiso/Consilium/internal/roles"
	"github.com/shaiso/Consilium/internal/telemetry"
	"github.com/shaiso/Consilium/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting consilium-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	catalog := roles.DefaultCatalog()

	// Роли этого процесса: WORKER_ROLES="architect,security" или все из каталога.
	roleIDs := roles.IDs(catalog)
	if raw := os.Getenv("WORKER_ROLES"); raw != "" {
		roleIDs = nil
		for _, id := range strings.Split(raw, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, err := catalog.Get(id); err != nil {
				logger.Error("unknown role in WORKER_ROLES", "role", id)
				os.Exit(1)
			}
			roleIDs = append(roleIDs, id)
		}
	}
	if len(roleIDs) == 0 {
		logger.Error("no roles configured")
		os.Exit(1)
	}

	// RabbitMQ
	conn, err := queue.Connect(queue.DefaultURL(), logger)
	if err != nil {
		logger.Error("failed to connect to message broker", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	q, err := queue.New(conn, logger, roles.IDs(catalog))
	if err != nil {
		logger.Error("failed to declare queue topology", "error", err)
		os.Exit(1)
	}
	defer q.Close()
	logger.Info("message broker connected", "roles", roleIDs)

	// Analysis executor
	analyzerURL := os.Getenv("ANALYZER_URL")
	if analyzerURL == "" {
		analyzerURL = "http://localhost:8090"
	}
	analyzer := worker.NewHTTPAnalyzer(analyzerURL)

	popTimeout := 30 * time.Second
	if raw := os.Getenv("WORKER_POP_TIMEOUT_SEC"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			popTimeout = time.Duration(v) * time.Second
		}
	}

	// Воркер на каждую роль
	workers := make([]*worker.Worker, 0, len(roleIDs))
	for _, roleID := range roleIDs {
		w := worker.New(worker.Config{
			RoleID:     roleID,
			Broker:     q,
			Catalog:    catalog,
			Analyzer:   analyzer,
			PopTimeout: popTimeout,
			Logger:     logger,
		})
		w.Start(ctx)
		workers = append(workers, w)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !q.IsConnected() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		addr = ":9090"
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем воркеров
	for _, w := range workers {
		w.Stop()
	}
	logger.Info("consilium-worker stopped")
}
