package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPAnalyzer_Analyze(t *testing.T) {
	var received AnalysisRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/analyze" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(AnalysisResult{Success: true, Data: "findings"})
	}))
	defer server.Close()

	a := NewHTTPAnalyzer(server.URL)
	result, err := a.Analyze(context.Background(), AnalysisRequest{
		Prompt:      "analyze this",
		Tools:       []string{"code_search"},
		ProjectPath: "/repo",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Success || result.Data != "findings" {
		t.Errorf("unexpected result: %+v", result)
	}
	if received.Prompt != "analyze this" {
		t.Errorf("prompt not delivered: %q", received.Prompt)
	}
	if len(received.Tools) != 1 || received.Tools[0] != "code_search" {
		t.Errorf("tools not delivered: %v", received.Tools)
	}
}

func TestHTTPAnalyzer_UnsuccessfulResultIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(AnalysisResult{Success: false, Error: "cannot parse project"})
	}))
	defer server.Close()

	a := NewHTTPAnalyzer(server.URL)
	result, err := a.Analyze(context.Background(), AnalysisRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("logical failure must not be a transport error: %v", err)
	}
	if result.Success {
		t.Error("expected unsuccessful result")
	}
	if result.Error != "cannot parse project" {
		t.Errorf("unexpected error text: %q", result.Error)
	}
}

func TestHTTPAnalyzer_HTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	a := NewHTTPAnalyzer(server.URL)
	_, err := a.Analyze(context.Background(), AnalysisRequest{Prompt: "x"})
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Errorf("expected ErrAnalysisFailed, got %v", err)
	}
}

func TestHTTPAnalyzer_ServerUnreachable(t *testing.T) {
	a := NewHTTPAnalyzer("http://127.0.0.1:1") // nothing listens here

	_, err := a.Analyze(context.Background(), AnalysisRequest{Prompt: "x"})
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Errorf("expected ErrAnalysisFailed, got %v", err)
	}
}
