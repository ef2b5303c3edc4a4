package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// OrchestrationResponse — оркестрация из API.
type OrchestrationResponse struct {
	ID          string         `json:"orchestration_id"`
	Query       string         `json:"query"`
	ProjectPath string         `json:"project_path"`
	Status      string         `json:"status"`
	CurrentRole string         `json:"current_role,omitempty"`
	Priority    string         `json:"priority"`
	Graph       GraphResponse  `json:"workflow_graph"`
	StartedAt   string         `json:"started_at"`
	Deadline    string         `json:"deadline"`
	FinishedAt  string         `json:"finished_at,omitempty"`
	FinalResult *FinalResult   `json:"final_result,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// GraphResponse — сводка плана workflow из API.
type GraphResponse struct {
	ID                   string              `json:"id"`
	Name                 string              `json:"name"`
	Description          string              `json:"description,omitempty"`
	Roles                []string            `json:"roles"`
	Edges                []GraphEdgeResponse `json:"edges"`
	EstimatedDurationSec int                 `json:"estimated_duration_sec"`
	EstimatedTokens      int                 `json:"estimated_tokens"`
}

// GraphEdgeResponse — ребро графа из API.
type GraphEdgeResponse struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// FinalResult — финальный результат завершённого workflow.
type FinalResult struct {
	FinalAnalysis string            `json:"final_analysis"`
	AllAnalyses   map[string]string `json:"all_analyses,omitempty"`
	Summary       string            `json:"summary,omitempty"`
}

// StopResponse — результат остановки оркестрации.
type StopResponse struct {
	ID    string   `json:"orchestration_id"`
	Roles []string `json:"roles"`
}

// QueueDepthResponse — глубина очереди роли из API.
type QueueDepthResponse struct {
	Role         string `json:"role"`
	Ready        int    `json:"ready"`
	DeadLettered int    `json:"dead_lettered"`
}

// --- Request types ---

// CreateOrchestrationRequest — запуск оркестрации.
type CreateOrchestrationRequest struct {
	Query       string `json:"query"`
	ProjectPath string `json:"project_path"`
	Priority    string `json:"priority,omitempty"`
	TimeoutMin  int    `json:"timeout_min,omitempty"`
	MaxRetries  int    `json:"max_retries,omitempty"`
}

// ListOpts — параметры списка оркестраций.
type ListOpts struct {
	Active bool
	Limit  int
	Offset int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Consilium API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Orchestrations ---

// CreateOrchestration запускает новую оркестрацию.
func (c *Client) CreateOrchestration(req CreateOrchestrationRequest) (*OrchestrationResponse, error) {
	var o OrchestrationResponse
	err := c.post("/api/v1/orchestrations", req, &o)
	return &o, err
}

// ListOrchestrations возвращает оркестрации, новые первыми.
func (c *Client) ListOrchestrations(opts ListOpts) ([]OrchestrationResponse, error) {
	params := url.Values{}
	if opts.Active {
		params.Set("active", "true")
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", fmt.Sprintf("%d", opts.Offset))
	}

	var orchestrations []OrchestrationResponse
	err := c.list("/api/v1/orchestrations", params, &orchestrations)
	return orchestrations, err
}

// GetOrchestration возвращает оркестрацию по ID.
func (c *Client) GetOrchestration(id string) (*OrchestrationResponse, error) {
	var o OrchestrationResponse
	err := c.get("/api/v1/orchestrations/"+id, &o)
	return &o, err
}

// StopOrchestration останавливает оркестрацию.
func (c *Client) StopOrchestration(id string) (*StopResponse, error) {
	var stop StopResponse
	err := c.post("/api/v1/orchestrations/"+id+"/stop", nil, &stop)
	return &stop, err
}

// --- Queues ---

// ListQueues возвращает глубины очередей ролей.
func (c *Client) ListQueues() ([]QueueDepthResponse, error) {
	var queues []QueueDepthResponse
	err := c.list("/api/v1/queues", nil, &queues)
	return queues, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
