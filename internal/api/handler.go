package api

import (
	"log/slog"

	"github.com/shaiso/Consilium/internal/orchestrator"
	"github.com/shaiso/Consilium/internal/queue"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	orchestrator *orchestrator.Service
	queue        *queue.Queue
	logger       *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Orchestrator *orchestrator.Service
	Queue        *queue.Queue
	Logger       *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		orchestrator: cfg.Orchestrator,
		queue:        cfg.Queue,
		logger:       cfg.Logger,
	}
}
