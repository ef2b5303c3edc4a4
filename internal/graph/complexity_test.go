package graph

import (
	"reflect"
	"testing"
)

func TestAnalyze_IsDeterministic(t *testing.T) {
	const request = "comprehensive security review of the payment module"

	first := Analyze(request)
	for i := 0; i < 10; i++ {
		if got := Analyze(request); !reflect.DeepEqual(got, first) {
			t.Fatalf("Analyze is not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestAnalyze_ComprehensiveSecurityReview(t *testing.T) {
	c := Analyze("comprehensive security review of the payment module")

	if c.Scope != ScopeComprehensive {
		t.Errorf("expected comprehensive scope, got %s", c.Scope)
	}
	if c.Keywords != 2 { // "comprehensive", "security"
		t.Errorf("expected 2 keywords, got %d", c.Keywords)
	}
	if !c.HasDomain(DomainSecurity) {
		t.Error("security domain should be detected")
	}
	if !c.HasDomain(DomainArchitecture) { // "module"
		t.Error("architecture domain should be detected")
	}
}

func TestAnalyze_NarrowFix(t *testing.T) {
	c := Analyze("fix this one function")

	if c.Scope != ScopeNarrow {
		t.Errorf("expected narrow scope, got %s", c.Scope)
	}
	if c.Keywords != 0 {
		t.Errorf("expected no complex keywords, got %d", c.Keywords)
	}
	if !c.HasDomain(DomainDebugging) {
		t.Error("debugging domain should be detected")
	}
	if c.HasDomain(DomainSecurity) {
		t.Error("security domain should not be detected")
	}
}

func TestAnalyze_CaseInsensitive(t *testing.T) {
	lower := Analyze("optimize the slow service")
	upper := Analyze("OPTIMIZE the SLOW service")

	if !reflect.DeepEqual(lower, upper) {
		t.Errorf("analysis should be case-insensitive: %+v vs %+v", lower, upper)
	}
	if !lower.HasDomain(DomainPerformance) {
		t.Error("performance domain should be detected")
	}
}

func TestClassifyScope(t *testing.T) {
	cases := []struct {
		request string
		want    Scope
	}{
		{"audit the entire codebase", ScopeComprehensive},
		{"review the auth module", ScopeBroad},
		{"rename this one method", ScopeNarrow},
		{"improve error messages", ScopeMedium},
		// comprehensive wins over narrow when both are present
		{"comprehensive check of this function", ScopeComprehensive},
		// "all" matches as a word, including at the end of the request
		{"review them all", ScopeBroad},
		{"check all handlers", ScopeBroad},
		// ...and never as a substring of another word
		{"improve install errors", ScopeMedium},
	}

	for _, tc := range cases {
		if got := Analyze(tc.request).Scope; got != tc.want {
			t.Errorf("%q: expected %s, got %s", tc.request, tc.want, got)
		}
	}
}
