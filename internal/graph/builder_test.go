package graph

import (
	"reflect"
	"testing"
	"time"

	"github.com/shaiso/Consilium/internal/roles"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	return NewBuilder(roles.DefaultCatalog())
}

func TestBuild_ComprehensiveSecurityReview(t *testing.T) {
	b := newTestBuilder(t)

	g, err := b.Build("comprehensive security review of the payment module")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"architect", "security", "quality", "coordinator"}
	if !reflect.DeepEqual(g.RoleIDs(), want) {
		t.Errorf("expected roles %v, got %v", want, g.RoleIDs())
	}

	if g.EstimatedDuration != 4*120*time.Second {
		t.Errorf("expected 480s estimate, got %s", g.EstimatedDuration)
	}
	if g.EstimatedTokens != 4*4000 {
		t.Errorf("expected 16000 tokens estimate, got %d", g.EstimatedTokens)
	}

	// Chain invariant: N roles, N-1 edges, single path.
	if err := g.Validate(); err != nil {
		t.Errorf("built graph must validate: %v", err)
	}

	start, err := g.StartRole()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.ID != "architect" {
		t.Errorf("expected architect first, got %s", start.ID)
	}

	// Coordinator is terminal.
	if _, ok := g.NextRole("coordinator"); ok {
		t.Error("coordinator must be the terminal role")
	}
}

func TestBuild_NarrowRequestFallsBackToArchitect(t *testing.T) {
	b := newTestBuilder(t)

	g, err := b.Build("fix this one function")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(g.RoleIDs(), []string{"architect"}) {
		t.Errorf("expected single architect, got %v", g.RoleIDs())
	}
	if len(g.Edges) != 0 {
		t.Errorf("single-role graph should have no edges, got %d", len(g.Edges))
	}
	if g.EstimatedDuration != 120*time.Second {
		t.Errorf("expected 120s estimate, got %s", g.EstimatedDuration)
	}
}

func TestBuild_PerformanceRequest(t *testing.T) {
	b := newTestBuilder(t)

	g, err := b.Build("optimize the slow checkout service, high latency under load")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := g.RoleIDs()
	if ids[len(ids)-1] != "coordinator" {
		t.Errorf("multi-role plan must end with coordinator, got %v", ids)
	}

	hasPerformance := false
	for _, id := range ids {
		if id == "performance" {
			hasPerformance = true
		}
	}
	if !hasPerformance {
		t.Errorf("performance role should be selected: %v", ids)
	}
}

func TestBuild_EdgesCarryContextMapping(t *testing.T) {
	b := newTestBuilder(t)

	g, err := b.Build("comprehensive security review of the payment module")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	edge, ok := g.Edge("architect")
	if !ok {
		t.Fatal("architect must have an outgoing edge")
	}

	wantPass := []string{"originalQuery", "projectPath", "accumulatedResults"}
	if !reflect.DeepEqual(edge.Context.Pass, wantPass) {
		t.Errorf("expected pass keys %v, got %v", wantPass, edge.Context.Pass)
	}
	if !reflect.DeepEqual(edge.Context.Transform, []string{"architect_analysis"}) {
		t.Errorf("transform should name the finished role's output: %v", edge.Context.Transform)
	}
	if len(edge.Context.Focus) == 0 {
		t.Error("focus should carry the next role's context requirements")
	}
}

func TestBuild_IsDeterministicExceptID(t *testing.T) {
	b := newTestBuilder(t)
	const request = "audit concurrency and memory usage across the whole system"

	first, err := b.Build(request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 5; i++ {
		g, err := b.Build(request)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(g.RoleIDs(), first.RoleIDs()) {
			t.Fatalf("role selection is not deterministic: %v vs %v", g.RoleIDs(), first.RoleIDs())
		}
	}
}

func TestBuild_UnknownRoleInCatalog(t *testing.T) {
	// A catalog missing the architect definition cannot serve the fallback.
	empty := roles.NewStaticCatalog()
	b := NewBuilder(empty)

	if _, err := b.Build("fix this one function"); err == nil {
		t.Error("expected error for a catalog without the fallback role")
	}
}
