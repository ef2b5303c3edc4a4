package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Consilium/internal/domain"
)

// Orchestration DTOs

// CreateOrchestrationRequest — запрос на запуск оркестрации.
type CreateOrchestrationRequest struct {
	Query       string `json:"query"`
	ProjectPath string `json:"project_path"`
	Priority    string `json:"priority,omitempty"`
	TimeoutMin  int    `json:"timeout_min,omitempty"`
	MaxRetries  int    `json:"max_retries,omitempty"`
}

// OrchestrationResponse — ответ с состоянием оркестрации.
type OrchestrationResponse struct {
	ID          uuid.UUID           `json:"orchestration_id"`
	Query       string              `json:"query"`
	ProjectPath string              `json:"project_path"`
	Status      string              `json:"status"`
	CurrentRole string              `json:"current_role,omitempty"`
	Priority    string              `json:"priority"`
	Graph       GraphResponse       `json:"workflow_graph"`
	StartedAt   time.Time           `json:"started_at"`
	Deadline    time.Time           `json:"deadline"`
	FinishedAt  *time.Time          `json:"finished_at,omitempty"`
	FinalResult *domain.FinalResult `json:"final_result,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// GraphResponse — сводка плана workflow.
type GraphResponse struct {
	ID                   uuid.UUID           `json:"id"`
	Name                 string              `json:"name"`
	Description          string              `json:"description,omitempty"`
	Roles                []string            `json:"roles"`
	Edges                []GraphEdgeResponse `json:"edges"`
	EstimatedDurationSec int                 `json:"estimated_duration_sec"`
	EstimatedTokens      int                 `json:"estimated_tokens"`
}

// GraphEdgeResponse — ребро графа в ответе API.
type GraphEdgeResponse struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// StopOrchestrationResponse — ответ на остановку оркестрации.
type StopOrchestrationResponse struct {
	ID    uuid.UUID `json:"orchestration_id"`
	Roles []string  `json:"roles"`
}

// OrchestrationFromDomain конвертирует domain.OrchestrationResult в OrchestrationResponse.
func OrchestrationFromDomain(o *domain.OrchestrationResult) OrchestrationResponse {
	return OrchestrationResponse{
		ID:          o.ID,
		Query:       o.Query,
		ProjectPath: o.ProjectPath,
		Status:      string(o.Status),
		CurrentRole: o.CurrentRole,
		Priority:    string(o.Priority),
		Graph:       GraphFromDomain(o.Graph),
		StartedAt:   o.StartedAt,
		Deadline:    o.Deadline,
		FinishedAt:  o.FinishedAt,
		FinalResult: o.FinalResult,
		Error:       o.Error,
	}
}

// GraphFromDomain конвертирует domain.WorkflowGraph в GraphResponse.
func GraphFromDomain(g *domain.WorkflowGraph) GraphResponse {
	edges := make([]GraphEdgeResponse, len(g.Edges))
	for i, e := range g.Edges {
		edges[i] = GraphEdgeResponse{From: e.From, To: e.To}
	}
	return GraphResponse{
		ID:                   g.ID,
		Name:                 g.Name,
		Description:          g.Description,
		Roles:                g.RoleIDs(),
		Edges:                edges,
		EstimatedDurationSec: int(g.EstimatedDuration.Seconds()),
		EstimatedTokens:      g.EstimatedTokens,
	}
}

// Queue DTOs

// QueueDepthResponse — глубина очереди одной роли.
type QueueDepthResponse struct {
	Role         string `json:"role"`
	Ready        int    `json:"ready"`
	DeadLettered int    `json:"dead_lettered"`
}
