package roles

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()

	want := []string{"architect", "security", "quality", "performance", "coordinator"}
	if !reflect.DeepEqual(IDs(catalog), want) {
		t.Errorf("expected roles %v, got %v", want, IDs(catalog))
	}

	for _, id := range want {
		def, err := catalog.Get(id)
		if err != nil {
			t.Fatalf("Get(%s): %v", id, err)
		}
		if def.Name == "" {
			t.Errorf("role %s has no name", id)
		}
		if len(def.Tools) == 0 {
			t.Errorf("role %s has no tools", id)
		}
		if def.OutputFormat == "" {
			t.Errorf("role %s has no output format", id)
		}
	}
}

func TestCatalog_UnknownRole(t *testing.T) {
	catalog := DefaultCatalog()

	_, err := catalog.Get("astrologer")
	if !errors.Is(err, ErrUnknownRole) {
		t.Errorf("expected ErrUnknownRole, got %v", err)
	}
}

func TestStaticCatalog_PreservesOrder(t *testing.T) {
	a := mustDefinition("a", "A", nil, nil, nil, "text", "prompt a")
	b := mustDefinition("b", "B", nil, nil, nil, "text", "prompt b")

	catalog := NewStaticCatalog(b, a)
	if !reflect.DeepEqual(IDs(catalog), []string{"b", "a"}) {
		t.Errorf("catalog must preserve definition order, got %v", IDs(catalog))
	}
}

func TestRenderPrompt(t *testing.T) {
	catalog := DefaultCatalog()
	def, err := catalog.Get("security")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prompt, err := def.RenderPrompt(PromptData{
		Query:            "check the payment flow",
		ProjectPath:      "/srv/app",
		Focus:            []string{"entry points"},
		PreviousAnalyses: "## architect\nlayered design",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"check the payment flow", "/srv/app", "entry points", "layered design"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt should contain %q:\n%s", want, prompt)
		}
	}
}

func TestRenderPrompt_NoPreviousAnalyses(t *testing.T) {
	catalog := DefaultCatalog()
	def, err := catalog.Get("architect")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prompt, err := def.RenderPrompt(PromptData{Query: "review", ProjectPath: "/srv/app"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(prompt, "Previous analyses") {
		t.Error("first role's prompt should not mention previous analyses")
	}
}

func TestNewDefinition_InvalidTemplate(t *testing.T) {
	_, err := NewDefinition("x", "X", nil, nil, nil, "text", "{{.Broken")
	if err == nil {
		t.Error("expected error for invalid template")
	}
}

func TestWorkflowRole_Conversion(t *testing.T) {
	def := mustDefinition("architect", "Software Architect",
		[]string{"design"}, []string{"code_search"}, []string{"structure"}, "markdown", "p")

	role := def.WorkflowRole()
	if role.ID != "architect" || role.Name != "Software Architect" {
		t.Errorf("unexpected conversion: %+v", role)
	}
	if !reflect.DeepEqual(role.Tools, []string{"code_search"}) {
		t.Errorf("tools should be copied: %v", role.Tools)
	}

	// The graph copy must be independent of the catalog definition.
	role.Tools[0] = "mutated"
	if def.Tools[0] != "code_search" {
		t.Error("mutating the graph role must not affect the catalog")
	}
}
