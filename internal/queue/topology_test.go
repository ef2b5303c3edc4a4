package queue

import (
	"testing"

	"github.com/google/uuid"
)

func TestQueueNames(t *testing.T) {
	if got := roleQueue("architect"); got != "role.architect.queue" {
		t.Errorf("unexpected role queue name: %s", got)
	}
	if got := deadLetterQueue("architect"); got != "role.architect.deadletter" {
		t.Errorf("unexpected dead-letter queue name: %s", got)
	}

	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	if got := completionQueue(id); got != "workflow.6ba7b810-9dad-11d1-80b4-00c04fd430c8.completion" {
		t.Errorf("unexpected completion queue name: %s", got)
	}
	if got := activeRoleQueue(id); got != "workflow.6ba7b810-9dad-11d1-80b4-00c04fd430c8.active" {
		t.Errorf("unexpected active-role queue name: %s", got)
	}
}

func TestWorkflowQueueArgs_Expire(t *testing.T) {
	args := workflowQueueArgs()

	// Abandoned workflow queues must be reclaimed by the broker.
	if args["x-expires"] != int32(3600*1000) {
		t.Errorf("expected 1h expiry, got %v", args["x-expires"])
	}
}

func TestActiveRoleQueueArgs_SingleMarker(t *testing.T) {
	args := activeRoleQueueArgs()

	// The marker queue holds exactly one message: a fresh marker
	// displaces the previous one.
	if args["x-max-length"] != int32(1) {
		t.Errorf("expected max length 1, got %v", args["x-max-length"])
	}
	if args["x-overflow"] != "drop-head" {
		t.Errorf("expected drop-head overflow, got %v", args["x-overflow"])
	}
	if args["x-expires"] != int32(3600*1000) {
		t.Errorf("expected 1h expiry, got %v", args["x-expires"])
	}
}
