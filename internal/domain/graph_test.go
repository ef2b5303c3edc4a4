package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

// chainGraph builds a sequential graph over the given role IDs.
func chainGraph(roleIDs ...string) *WorkflowGraph {
	g := &WorkflowGraph{ID: uuid.New(), Name: "test"}
	for _, id := range roleIDs {
		g.Roles = append(g.Roles, WorkflowRole{ID: id, Name: id})
	}
	for i := 0; i+1 < len(roleIDs); i++ {
		g.Edges = append(g.Edges, WorkflowEdge{From: roleIDs[i], To: roleIDs[i+1]})
	}
	return g
}

func TestWorkflowGraph_StartRole(t *testing.T) {
	g := chainGraph("architect", "security", "coordinator")

	start, err := g.StartRole()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.ID != "architect" {
		t.Errorf("expected architect as start role, got %s", start.ID)
	}
}

func TestWorkflowGraph_StartRole_SingleRole(t *testing.T) {
	g := chainGraph("architect")

	start, err := g.StartRole()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.ID != "architect" {
		t.Errorf("expected architect, got %s", start.ID)
	}
}

func TestWorkflowGraph_StartRole_NoStart(t *testing.T) {
	// Two roles pointing at each other: no root.
	g := chainGraph("a", "b")
	g.Edges = append(g.Edges, WorkflowEdge{From: "b", To: "a"})

	if _, err := g.StartRole(); !errors.Is(err, ErrNoStartRole) {
		t.Errorf("expected ErrNoStartRole, got %v", err)
	}
}

func TestWorkflowGraph_StartRole_MultipleStarts(t *testing.T) {
	g := &WorkflowGraph{
		Roles: []WorkflowRole{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Edges: []WorkflowEdge{{From: "a", To: "c"}},
	}

	if _, err := g.StartRole(); !errors.Is(err, ErrMultipleStartRoles) {
		t.Errorf("expected ErrMultipleStartRoles, got %v", err)
	}
}

func TestWorkflowGraph_NextRole(t *testing.T) {
	g := chainGraph("architect", "security", "coordinator")

	next, ok := g.NextRole("architect")
	if !ok || next != "security" {
		t.Errorf("expected security after architect, got %q (ok=%v)", next, ok)
	}

	next, ok = g.NextRole("security")
	if !ok || next != "coordinator" {
		t.Errorf("expected coordinator after security, got %q (ok=%v)", next, ok)
	}

	// Terminal role has no successor.
	if _, ok := g.NextRole("coordinator"); ok {
		t.Error("coordinator should be terminal")
	}
}

func TestWorkflowGraph_Validate(t *testing.T) {
	if err := chainGraph("architect", "security", "quality", "coordinator").Validate(); err != nil {
		t.Errorf("valid chain rejected: %v", err)
	}
	if err := chainGraph("architect").Validate(); err != nil {
		t.Errorf("single-role graph rejected: %v", err)
	}
}

func TestWorkflowGraph_Validate_EdgeCountMismatch(t *testing.T) {
	g := chainGraph("a", "b", "c")
	g.Edges = g.Edges[:1] // drop one edge

	if err := g.Validate(); !errors.Is(err, ErrBrokenChain) {
		t.Errorf("expected ErrBrokenChain, got %v", err)
	}
}

func TestWorkflowGraph_Validate_Cycle(t *testing.T) {
	g := &WorkflowGraph{
		Roles: []WorkflowRole{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Edges: []WorkflowEdge{
			{From: "a", To: "b"},
			{From: "b", To: "a"},
		},
	}

	err := g.Validate()
	if err == nil {
		t.Fatal("expected error for cyclic graph")
	}
}

func TestWorkflowGraph_Validate_UnknownTarget(t *testing.T) {
	g := &WorkflowGraph{
		Roles: []WorkflowRole{{ID: "a"}, {ID: "b"}},
		Edges: []WorkflowEdge{{From: "a", To: "ghost"}},
	}

	if err := g.Validate(); !errors.Is(err, ErrBrokenChain) {
		t.Errorf("expected ErrBrokenChain, got %v", err)
	}
}

func TestWorkflowGraph_RoleIDs(t *testing.T) {
	g := chainGraph("architect", "security")

	ids := g.RoleIDs()
	if len(ids) != 2 || ids[0] != "architect" || ids[1] != "security" {
		t.Errorf("unexpected role ids: %v", ids)
	}
}
