package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultAnalysisTimeout = 120 * time.Second

// Analyzer — контракт внешнего analysis executor'а.
//
// Для ядра это чёрный ящик: что именно генерирует анализ (LLM-процесс,
// статический анализатор) — не его забота. Инфраструктурные сбои
// возвращаются через error, логический отказ — через Result.Success=false.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error)
}

// AnalysisRequest — вход analysis executor'а.
type AnalysisRequest struct {
	// Prompt — отрендеренный промпт роли.
	Prompt string `json:"prompt"`

	// Tools — список инструментов роли (непрозрачные имена).
	Tools []string `json:"tools,omitempty"`

	// ProjectPath — путь к анализируемому проекту.
	ProjectPath string `json:"project_path"`

	// TimeoutMillis — таймаут выполнения анализа.
	TimeoutMillis int64 `json:"timeout_ms"`
}

// AnalysisResult — выход analysis executor'а.
type AnalysisResult struct {
	Success bool   `json:"success"`
	Data    string `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HTTPAnalyzer — Analyzer поверх HTTP-сервиса анализа.
//
// POST {base}/api/v1/analyze с JSON-телом AnalysisRequest,
// ответ — AnalysisResult.
type HTTPAnalyzer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPAnalyzer создаёт HTTPAnalyzer.
func NewHTTPAnalyzer(baseURL string) *HTTPAnalyzer {
	return &HTTPAnalyzer{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// Analyze выполняет запрос к сервису анализа.
func (a *HTTPAnalyzer) Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	timeout := time.Duration(req.TimeoutMillis) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultAnalysisTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/v1/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create analysis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrAnalysisFailed, err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrAnalysisFailed, resp.StatusCode, truncate(string(respBody), 200))
	}

	var result AnalysisResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %v", ErrAnalysisFailed, err)
	}

	return &result, nil
}

// truncate обрезает строку до n символов.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
