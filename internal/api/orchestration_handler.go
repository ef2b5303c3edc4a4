package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Consilium/internal/domain"
	"github.com/shaiso/Consilium/internal/orchestrator"
)

// defaultListLimit — лимит списков по умолчанию.
const defaultListLimit = 50

// CreateOrchestration запускает новую оркестрацию.
// POST /api/v1/orchestrations
func (h *Handler) CreateOrchestration(w http.ResponseWriter, r *http.Request) {
	var req CreateOrchestrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		BadRequest(w, "query is required")
		return
	}
	if strings.TrimSpace(req.ProjectPath) == "" {
		BadRequest(w, "project_path is required")
		return
	}

	o, err := h.orchestrator.Orchestrate(r.Context(), orchestrator.Request{
		Query:       req.Query,
		ProjectPath: req.ProjectPath,
		Priority:    domain.ParsePriority(req.Priority),
		Timeout:     time.Duration(req.TimeoutMin) * time.Minute,
		MaxRetries:  req.MaxRetries,
	})
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Created(w, OrchestrationFromDomain(o))
}

// ListOrchestrations возвращает оркестрации, новые первыми.
// GET /api/v1/orchestrations?active=true&limit=...&offset=...
func (h *Handler) ListOrchestrations(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("active") == "true" {
		active, err := h.orchestrator.ListActive(r.Context())
		if HandleServiceError(w, h.logger, err, "") {
			return
		}
		List(w, orchestrationsFromDomain(active), len(active))
		return
	}

	limit := parseIntParam(r, "limit", defaultListLimit)
	offset := parseIntParam(r, "offset", 0)

	orchestrations, err := h.orchestrator.List(r.Context(), limit, offset)
	if HandleServiceError(w, h.logger, err, "") {
		return
	}

	List(w, orchestrationsFromDomain(orchestrations), len(orchestrations))
}

// GetOrchestration возвращает состояние оркестрации.
// GET /api/v1/orchestrations/{id}
func (h *Handler) GetOrchestration(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid orchestration id")
		return
	}

	o, err := h.orchestrator.Status(r.Context(), id)
	if HandleServiceError(w, h.logger, err, "orchestration not found") {
		return
	}

	dto := OrchestrationFromDomain(o)
	if o.Status == domain.StatusRunning {
		// Маркер у брокера свежее записи в хранилище; best-effort.
		if role, err := h.queue.ActiveRole(r.Context(), id); err == nil && role != "" {
			dto.CurrentRole = role
		}
	}

	Success(w, dto)
}

// StopOrchestration останавливает оркестрацию.
// POST /api/v1/orchestrations/{id}/stop
func (h *Handler) StopOrchestration(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid orchestration id")
		return
	}

	roles, err := h.orchestrator.Stop(r.Context(), id)
	if HandleServiceError(w, h.logger, err, "orchestration not found") {
		return
	}

	Success(w, StopOrchestrationResponse{ID: id, Roles: roles})
}

// orchestrationsFromDomain конвертирует срез доменных оркестраций в DTO.
func orchestrationsFromDomain(orchestrations []domain.OrchestrationResult) []OrchestrationResponse {
	result := make([]OrchestrationResponse, len(orchestrations))
	for i := range orchestrations {
		result[i] = OrchestrationFromDomain(&orchestrations[i])
	}
	return result
}

// parseIntParam парсит целочисленный query-параметр с fallback.
func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
