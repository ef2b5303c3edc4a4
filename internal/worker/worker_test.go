package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Consilium/internal/domain"
	"github.com/shaiso/Consilium/internal/roles"
)

// --- Fakes ---

// fakeBroker records broker calls in memory.
type fakeBroker struct {
	mu          sync.Mutex
	pushed      map[string][]*domain.WorkflowMessage
	completions []*domain.WorkflowCompletion
	deadLetters []*domain.WorkflowMessage
	pushErr     error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{pushed: make(map[string][]*domain.WorkflowMessage)}
}

func (b *fakeBroker) PopBlocking(ctx context.Context, roleID string, timeout time.Duration) (*domain.WorkflowMessage, error) {
	return nil, nil
}

func (b *fakeBroker) Push(ctx context.Context, roleID string, msg *domain.WorkflowMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pushErr != nil {
		return b.pushErr
	}
	b.pushed[roleID] = append(b.pushed[roleID], msg)
	return nil
}

func (b *fakeBroker) PublishCompletion(ctx context.Context, workflowID uuid.UUID, completion *domain.WorkflowCompletion) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.completions = append(b.completions, completion)
	return nil
}

func (b *fakeBroker) DeadLetter(ctx context.Context, roleID string, msg *domain.WorkflowMessage, cause error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deadLetters = append(b.deadLetters, msg)
	return nil
}

func (b *fakeBroker) lastPushed(roleID string) *domain.WorkflowMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	msgs := b.pushed[roleID]
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

// scriptedAnalyzer returns preconfigured outcomes per call.
type scriptedAnalyzer struct {
	outcomes []AnalysisResult
	calls    int
	lastReq  AnalysisRequest
}

func (a *scriptedAnalyzer) Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	a.lastReq = req
	outcome := AnalysisResult{Success: true, Data: "analysis output"}
	if a.calls < len(a.outcomes) {
		outcome = a.outcomes[a.calls]
	}
	a.calls++
	return &outcome, nil
}

// --- Helpers ---

func fastBackoff() *Backoff {
	return &Backoff{Initial: time.Millisecond, Max: time.Millisecond, Multiplier: 1, Jitter: 0}
}

func newTestWorker(t *testing.T, roleID string, broker Broker, analyzer Analyzer) *Worker {
	t.Helper()
	return New(Config{
		RoleID:   roleID,
		Broker:   broker,
		Catalog:  roles.DefaultCatalog(),
		Analyzer: analyzer,
		Backoff:  fastBackoff(),
	})
}

func twoRoleMessage(maxRetries int) *domain.WorkflowMessage {
	g := &domain.WorkflowGraph{
		ID:   uuid.New(),
		Name: "test",
		Roles: []domain.WorkflowRole{
			{ID: "architect", Name: "Software Architect", ContextRequirements: []string{"structure"}},
			{ID: "security", Name: "Security Analyst"},
		},
		Edges: []domain.WorkflowEdge{{
			From: "architect",
			To:   "security",
			Context: domain.ContextMapping{
				Pass:      []string{"originalQuery"},
				Transform: []string{"architect_analysis"},
			},
		}},
	}
	return domain.NewWorkflowMessage(uuid.New(), g, "architect", "review the code", "/repo", domain.PriorityNormal, maxRetries)
}

func singleRoleMessage(maxRetries int) *domain.WorkflowMessage {
	g := &domain.WorkflowGraph{
		ID:    uuid.New(),
		Name:  "test",
		Roles: []domain.WorkflowRole{{ID: "architect", Name: "Software Architect"}},
	}
	return domain.NewWorkflowMessage(uuid.New(), g, "architect", "review the code", "/repo", domain.PriorityNormal, maxRetries)
}

// --- Tests ---

func TestProcess_ForwardsToNextRoleByGraph(t *testing.T) {
	broker := newFakeBroker()
	analyzer := &scriptedAnalyzer{}
	w := newTestWorker(t, "architect", broker, analyzer)

	msg := twoRoleMessage(3)
	w.process(context.Background(), msg)

	forwarded := broker.lastPushed("security")
	if forwarded == nil {
		t.Fatal("message should be forwarded to security")
	}
	if forwarded.Metadata.Step != 2 {
		t.Errorf("expected step 2, got %d", forwarded.Metadata.Step)
	}
	if forwarded.PreviousRole != "architect" {
		t.Errorf("expected previous role architect, got %s", forwarded.PreviousRole)
	}
	if len(forwarded.Input.AccumulatedResults) != 1 {
		t.Fatalf("architect result should be accumulated: %+v", forwarded.Input.AccumulatedResults)
	}
	if forwarded.Input.ContextFromPrevious["architect_analysis"] != "analysis output" {
		t.Error("transform keys of the edge should carry the role output")
	}

	if len(broker.completions) != 1 {
		t.Fatalf("expected one completion, got %d", len(broker.completions))
	}
	progress := broker.completions[0]
	if progress.Status != domain.CompletionProgress {
		t.Errorf("expected PROGRESS, got %s", progress.Status)
	}
	if progress.Output != "analysis output" {
		t.Errorf("progress event should carry the step output, got %q", progress.Output)
	}

	if len(broker.deadLetters) != 0 {
		t.Error("successful step must not dead-letter")
	}
}

func TestProcess_TerminalRolePublishesFinalResult(t *testing.T) {
	broker := newFakeBroker()
	analyzer := &scriptedAnalyzer{}
	w := newTestWorker(t, "architect", broker, analyzer)

	w.process(context.Background(), singleRoleMessage(3))

	if len(broker.pushed) != 0 {
		t.Error("terminal role must not forward")
	}
	if len(broker.completions) != 1 {
		t.Fatalf("expected one completion, got %d", len(broker.completions))
	}

	final := broker.completions[0]
	if final.Status != domain.CompletionComplete {
		t.Fatalf("expected COMPLETE, got %s", final.Status)
	}
	if final.Result == nil {
		t.Fatal("COMPLETE event must carry the final result")
	}
	if final.Result.FinalAnalysis != "analysis output" {
		t.Errorf("unexpected final analysis: %q", final.Result.FinalAnalysis)
	}
	if len(final.Result.AllAnalyses) != 1 {
		t.Errorf("expected one accumulated analysis, got %d", len(final.Result.AllAnalyses))
	}
	if !strings.Contains(final.Result.Summary, "architect") {
		t.Errorf("summary should list the roles: %q", final.Result.Summary)
	}
}

func TestProcess_RetriesThenDeadLetters(t *testing.T) {
	broker := newFakeBroker()
	// Analyzer fails on every attempt.
	analyzer := &scriptedAnalyzer{outcomes: []AnalysisResult{
		{Success: false, Error: "boom"},
		{Success: false, Error: "boom"},
		{Success: false, Error: "boom"},
		{Success: false, Error: "boom"},
	}}
	w := newTestWorker(t, "architect", broker, analyzer)
	ctx := context.Background()

	msg := singleRoleMessage(3)
	w.process(ctx, msg)

	// Each failed attempt re-queues a copy with RetryCount+1; replay it
	// as the queue loop would.
	for attempt := 1; attempt <= 3; attempt++ {
		retried := broker.lastPushed("architect")
		if retried == nil {
			t.Fatalf("attempt %d: expected a retried message", attempt)
		}
		if retried.Metadata.RetryCount != attempt {
			t.Fatalf("attempt %d: expected retry count %d, got %d", attempt, attempt, retried.Metadata.RetryCount)
		}
		w.process(ctx, retried)
	}

	if got := len(broker.pushed["architect"]); got != 3 {
		t.Errorf("expected exactly 3 re-pushes, got %d", got)
	}
	if len(broker.deadLetters) != 1 {
		t.Fatalf("expected one dead-lettered message, got %d", len(broker.deadLetters))
	}
	if broker.deadLetters[0].Metadata.RetryCount != 3 {
		t.Errorf("dead-lettered message should carry the final retry count, got %d", broker.deadLetters[0].Metadata.RetryCount)
	}

	if len(broker.completions) != 1 {
		t.Fatalf("expected exactly one ERROR completion, got %d", len(broker.completions))
	}
	errEvent := broker.completions[0]
	if errEvent.Status != domain.CompletionError {
		t.Errorf("expected ERROR, got %s", errEvent.Status)
	}
	if !strings.Contains(errEvent.Error, "retry attempts exhausted") {
		t.Errorf("unexpected error text: %q", errEvent.Error)
	}
}

func TestProcess_RecoversWithinRetryBudget(t *testing.T) {
	broker := newFakeBroker()
	// Two failures, then success.
	analyzer := &scriptedAnalyzer{outcomes: []AnalysisResult{
		{Success: false, Error: "transient"},
		{Success: false, Error: "transient"},
		{Success: true, Data: "finally"},
	}}
	w := newTestWorker(t, "architect", broker, analyzer)
	ctx := context.Background()

	w.process(ctx, singleRoleMessage(3))
	w.process(ctx, broker.lastPushed("architect"))
	w.process(ctx, broker.lastPushed("architect"))

	if len(broker.deadLetters) != 0 {
		t.Error("recovered workflow must not dead-letter")
	}
	if len(broker.completions) != 1 || broker.completions[0].Status != domain.CompletionComplete {
		t.Fatalf("expected a single COMPLETE completion, got %+v", broker.completions)
	}
	if broker.completions[0].Result.FinalAnalysis != "finally" {
		t.Errorf("unexpected final analysis: %q", broker.completions[0].Result.FinalAnalysis)
	}
}

func TestProcess_NilGraphIsHandledAsFailure(t *testing.T) {
	broker := newFakeBroker()
	analyzer := &scriptedAnalyzer{}
	w := newTestWorker(t, "architect", broker, analyzer)

	// A message may decode cleanly while carrying "graph": null.
	msg := &domain.WorkflowMessage{
		WorkflowID: uuid.New(),
		RoleID:     "architect",
		Input:      domain.MessageInput{OriginalQuery: "review the code", ProjectPath: "/repo"},
		Metadata:   domain.MessageMetadata{Step: 1, TotalSteps: 1},
	}
	w.process(context.Background(), msg)

	if analyzer.calls != 0 {
		t.Error("analyzer must not run without a graph")
	}
	if len(broker.deadLetters) != 1 {
		t.Fatalf("expected dead-letter, got %d", len(broker.deadLetters))
	}
	if len(broker.completions) != 1 || broker.completions[0].Status != domain.CompletionError {
		t.Fatalf("expected ERROR completion, got %+v", broker.completions)
	}
	if !strings.Contains(broker.completions[0].Error, "malformed workflow message") {
		t.Errorf("unexpected error text: %q", broker.completions[0].Error)
	}
}

func TestProcess_DeadLettersWhenRequeueFails(t *testing.T) {
	broker := newFakeBroker()
	broker.pushErr = errors.New("broker down")
	analyzer := &scriptedAnalyzer{outcomes: []AnalysisResult{{Success: false, Error: "boom"}}}
	w := newTestWorker(t, "architect", broker, analyzer)

	w.process(context.Background(), singleRoleMessage(3))

	// Retry budget remains, but the message cannot be re-queued:
	// it must land in the DLQ instead of being lost.
	if len(broker.deadLetters) != 1 {
		t.Fatalf("expected dead-letter on requeue failure, got %d", len(broker.deadLetters))
	}
	if len(broker.completions) != 1 || broker.completions[0].Status != domain.CompletionError {
		t.Fatalf("expected ERROR completion, got %+v", broker.completions)
	}
}

func TestAnalyze_PassesRoleToolsAndPrompt(t *testing.T) {
	broker := newFakeBroker()
	analyzer := &scriptedAnalyzer{}
	w := newTestWorker(t, "architect", broker, analyzer)

	w.process(context.Background(), twoRoleMessage(3))

	if analyzer.lastReq.ProjectPath != "/repo" {
		t.Errorf("unexpected project path: %q", analyzer.lastReq.ProjectPath)
	}
	if len(analyzer.lastReq.Tools) == 0 {
		t.Error("role tools should be passed to the analyzer")
	}
	if !strings.Contains(analyzer.lastReq.Prompt, "review the code") {
		t.Error("prompt should contain the original query")
	}
	if analyzer.lastReq.TimeoutMillis <= 0 {
		t.Error("analysis timeout should be set")
	}
}

func TestStartStop(t *testing.T) {
	broker := newFakeBroker()
	w := New(Config{
		RoleID:     "architect",
		Broker:     broker,
		Catalog:    roles.DefaultCatalog(),
		Analyzer:   &scriptedAnalyzer{},
		Backoff:    fastBackoff(),
		PopTimeout: 10 * time.Millisecond,
	})

	w.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop in time")
	}
}
