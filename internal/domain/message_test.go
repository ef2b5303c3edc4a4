package domain

import (
	"testing"

	"github.com/google/uuid"
)

func newTestMessage(t *testing.T) *WorkflowMessage {
	t.Helper()
	g := chainGraph("architect", "security")
	return NewWorkflowMessage(uuid.New(), g, "architect", "review the code", "/repo", PriorityNormal, 3)
}

func TestNewWorkflowMessage(t *testing.T) {
	msg := newTestMessage(t)

	if msg.Metadata.Step != 1 {
		t.Errorf("first message should have step 1, got %d", msg.Metadata.Step)
	}
	if msg.Metadata.TotalSteps != 2 {
		t.Errorf("expected 2 total steps, got %d", msg.Metadata.TotalSteps)
	}
	if msg.Metadata.RetryCount != 0 {
		t.Errorf("new message should have zero retries, got %d", msg.Metadata.RetryCount)
	}
	if msg.Input.OriginalQuery != "review the code" {
		t.Errorf("unexpected query: %q", msg.Input.OriginalQuery)
	}
	if msg.PreviousRole != "" {
		t.Errorf("first message should have no previous role, got %q", msg.PreviousRole)
	}
}

func TestWorkflowMessage_Forward(t *testing.T) {
	msg := newTestMessage(t)
	result := RoleResult{Role: "architect", Output: "layered design"}
	ctx := map[string]any{"architect_analysis": "layered design"}

	next := msg.Forward("security", result, ctx)

	if next.RoleID != "security" {
		t.Errorf("expected security, got %s", next.RoleID)
	}
	if next.PreviousRole != "architect" {
		t.Errorf("expected previous role architect, got %s", next.PreviousRole)
	}
	if next.Metadata.Step != 2 {
		t.Errorf("expected step 2, got %d", next.Metadata.Step)
	}
	if len(next.Input.AccumulatedResults) != 1 || next.Input.AccumulatedResults[0].Role != "architect" {
		t.Errorf("architect result should be accumulated: %+v", next.Input.AccumulatedResults)
	}
	if next.Input.ContextFromPrevious["architect_analysis"] != "layered design" {
		t.Error("context mapping should be carried to the next role")
	}
	if next.WorkflowID != msg.WorkflowID {
		t.Error("workflow id must be preserved")
	}
	if next.Graph != msg.Graph {
		t.Error("graph must be carried in every message")
	}

	// Retry budget resets per message, not per workflow step.
	if next.Metadata.RetryCount != 0 {
		t.Errorf("forwarded message should start with zero retries, got %d", next.Metadata.RetryCount)
	}

	// Original message must stay untouched.
	if len(msg.Input.AccumulatedResults) != 0 {
		t.Error("Forward must not mutate the original message")
	}
}

func TestWorkflowMessage_Retry(t *testing.T) {
	msg := newTestMessage(t)

	first := msg.Retry()
	if first.Metadata.RetryCount != 1 {
		t.Errorf("expected retry count 1, got %d", first.Metadata.RetryCount)
	}
	if msg.Metadata.RetryCount != 0 {
		t.Error("Retry must not mutate the original message")
	}

	second := first.Retry()
	third := second.Retry()
	if third.Metadata.RetryCount != 3 {
		t.Errorf("expected retry count 3, got %d", third.Metadata.RetryCount)
	}
	if third.CanRetry() {
		t.Error("message at max retries must not be retryable")
	}
}

func TestWorkflowMessage_CanRetry(t *testing.T) {
	msg := newTestMessage(t)

	if !msg.CanRetry() {
		t.Error("fresh message should be retryable")
	}

	msg.Metadata.RetryCount = msg.Metadata.MaxRetries
	if msg.CanRetry() {
		t.Error("exhausted message should not be retryable")
	}
}
