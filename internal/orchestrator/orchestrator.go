package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Consilium/internal/domain"
)

// Default configuration values.
const (
	defaultTimeout      = 30 * time.Minute
	defaultMaxRetries   = 3
	defaultPollInterval = 5 * time.Second
)

// Store — персистентный реестр оркестраций.
type Store interface {
	Create(ctx context.Context, o *domain.OrchestrationResult) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.OrchestrationResult, error)
	List(ctx context.Context, limit, offset int) ([]domain.OrchestrationResult, error)
	ListUnfinished(ctx context.Context) ([]domain.OrchestrationResult, error)
	Update(ctx context.Context, o *domain.OrchestrationResult) error
	SetCurrentRole(ctx context.Context, id uuid.UUID, roleID string) error
}

// Broker — операции очереди, нужные оркестратору.
type Broker interface {
	Push(ctx context.Context, roleID string, msg *domain.WorkflowMessage) error
	WaitCompletion(ctx context.Context, workflowID uuid.UUID, timeout time.Duration) (*domain.WorkflowCompletion, error)
	CleanupWorkflow(ctx context.Context, workflowID uuid.UUID) error
}

// GraphBuilder строит план workflow по тексту запроса.
type GraphBuilder interface {
	Build(request string) (*domain.WorkflowGraph, error)
}

// Service — оркестратор.
//
// На каждую активную оркестрацию запускается одна monitor-горутина;
// разделяемого состояния между оркестрациями нет, координация идёт
// через Broker и Store.
type Service struct {
	store   Store
	broker  Broker
	builder GraphBuilder

	timeout      time.Duration
	pollInterval time.Duration

	logger *slog.Logger

	// monitors — cancel-функции активных monitor-циклов.
	mu       sync.Mutex
	monitors map[uuid.UUID]context.CancelFunc

	// Lifecycle
	rootCtx    context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Service.
type Config struct {
	Store   Store
	Broker  Broker
	Builder GraphBuilder

	// Timeout — общий wall-clock таймаут оркестрации (default: 30m).
	Timeout time.Duration

	// PollInterval — шаг блокирующего ожидания completion-событий
	// (default: 5s).
	PollInterval time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт Service.
func New(cfg Config) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rootCtx, cancel := context.WithCancel(context.Background())

	return &Service{
		store:        cfg.Store,
		broker:       cfg.Broker,
		builder:      cfg.Builder,
		timeout:      timeout,
		pollInterval: pollInterval,
		logger:       logger,
		monitors:     make(map[uuid.UUID]context.CancelFunc),
		rootCtx:      rootCtx,
		cancelFunc:   cancel,
	}
}

// Request — параметры запуска оркестрации.
type Request struct {
	// Query — запрос пользователя.
	Query string

	// ProjectPath — путь к анализируемому проекту.
	ProjectPath string

	// Priority — приоритет workflow (default: NORMAL).
	Priority domain.Priority

	// Timeout — таймаут этой оркестрации (default: таймаут сервиса).
	Timeout time.Duration

	// MaxRetries — лимит повторов на шаг (default: 3).
	MaxRetries int
}

// Orchestrate строит граф, сохраняет оркестрацию со статусом INITIATED,
// запускает monitor-горутину и сразу возвращает начальное состояние.
//
// Ошибка построения графа (нет стартовой роли) фатальна и не повторяется.
func (s *Service) Orchestrate(ctx context.Context, req Request) (*domain.OrchestrationResult, error) {
	graph, err := s.builder.Build(req.Query)
	if err != nil {
		return nil, fmt.Errorf("build workflow graph: %w", err)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.timeout
	}
	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}

	now := time.Now().UTC()
	o := &domain.OrchestrationResult{
		ID:          uuid.New(),
		Query:       req.Query,
		ProjectPath: req.ProjectPath,
		Graph:       graph,
		Status:      domain.StatusInitiated,
		MaxRetries:  maxRetries,
		Priority:    priority,
		StartedAt:   now,
		Deadline:    now.Add(timeout),
	}

	if err := s.store.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("store orchestration: %w", err)
	}

	s.logger.Info("orchestration initiated",
		"workflow_id", o.ID,
		"roles", graph.RoleIDs(),
		"deadline", o.Deadline,
	)

	s.startMonitor(o, true)

	return o, nil
}

// Status возвращает текущее состояние оркестрации.
func (s *Service) Status(ctx context.Context, id uuid.UUID) (*domain.OrchestrationResult, error) {
	return s.store.GetByID(ctx, id)
}

// List возвращает оркестрации, новые первыми.
func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.OrchestrationResult, error) {
	return s.store.List(ctx, limit, offset)
}

// ListActive возвращает незавершённые оркестрации.
func (s *Service) ListActive(ctx context.Context) ([]domain.OrchestrationResult, error) {
	return s.store.ListUnfinished(ctx)
}

// Stop останавливает оркестрацию: статус FAILED ("stopped by user"),
// состояние в очереди удаляется. Best-effort: выполняющийся вызов
// analysis executor'а не прерывается.
//
// Возвращает роли графа остановленной оркестрации.
func (s *Service) Stop(ctx context.Context, id uuid.UUID) ([]string, error) {
	o, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.IsFinished() {
		return nil, ErrAlreadyFinished
	}

	// Сначала гасим monitor, чтобы не гоняться с ним за финализацию.
	s.stopMonitor(id)

	o.MarkFailed(ErrStopped.Error())
	if err := s.store.Update(ctx, o); err != nil {
		return nil, err
	}

	if err := s.broker.CleanupWorkflow(ctx, id); err != nil {
		s.logger.Warn("cleanup after stop failed", "workflow_id", id, "error", err)
	}

	s.logger.Info("orchestration stopped by user", "workflow_id", id)

	return o.Graph.RoleIDs(), nil
}

// Recover переподключает monitor-циклы к незавершённым оркестрациям
// из реестра. Вызывается при старте процесса.
//
// INITIATED-оркестрации диспетчеризуются заново (первое сообщение могло
// не дойти до очереди перед рестартом; возможен редкий дубликат),
// RUNNING — только мониторятся. Оркестрации с истёкшим deadline
// помечаются FAILED сразу.
func (s *Service) Recover(ctx context.Context) (int, error) {
	unfinished, err := s.store.ListUnfinished(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unfinished orchestrations: %w", err)
	}

	recovered := 0
	now := time.Now().UTC()

	for i := range unfinished {
		o := &unfinished[i]

		if !o.Deadline.After(now) {
			s.finalize(ctx, o, domain.StatusFailed, nil, ErrTimeout.Error())
			continue
		}

		s.startMonitor(o, o.Status == domain.StatusInitiated)
		recovered++
	}

	if recovered > 0 || len(unfinished) > 0 {
		s.logger.Info("orchestrations recovered",
			"monitoring", recovered,
			"expired", len(unfinished)-recovered,
		)
	}

	return recovered, nil
}

// Shutdown гасит все monitor-циклы и ждёт их завершения.
// Незавершённые оркестрации остаются в реестре для Recover.
func (s *Service) Shutdown() {
	s.logger.Info("stopping orchestrator...")
	s.cancelFunc()
	s.wg.Wait()
	s.logger.Info("orchestrator stopped")
}

// ActiveMonitors возвращает количество активных monitor-циклов.
func (s *Service) ActiveMonitors() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.monitors)
}

// startMonitor регистрирует и запускает monitor-горутину оркестрации.
func (s *Service) startMonitor(o *domain.OrchestrationResult, dispatch bool) {
	ctx, cancel := context.WithCancel(s.rootCtx)

	s.mu.Lock()
	s.monitors[o.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.removeMonitor(o.ID)
		s.monitor(ctx, o, dispatch)
	}()
}

// stopMonitor отменяет monitor-горутину оркестрации.
func (s *Service) stopMonitor(id uuid.UUID) {
	s.mu.Lock()
	cancel, ok := s.monitors[id]
	s.mu.Unlock()

	if ok {
		cancel()
	}
}

// removeMonitor снимает регистрацию monitor-горутины.
func (s *Service) removeMonitor(id uuid.UUID) {
	s.mu.Lock()
	if cancel, ok := s.monitors[id]; ok {
		cancel()
		delete(s.monitors, id)
	}
	s.mu.Unlock()
}
