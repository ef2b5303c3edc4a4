package api

import (
	"net/http"
	"sort"
)

// ListQueues возвращает глубины очередей всех ролей.
// GET /api/v1/queues
func (h *Handler) ListQueues(w http.ResponseWriter, r *http.Request) {
	depths, err := h.queue.AllDepths(r.Context())
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	result := make([]QueueDepthResponse, 0, len(depths))
	for roleID, depth := range depths {
		result = append(result, QueueDepthResponse{
			Role:         roleID,
			Ready:        depth.Ready,
			DeadLettered: depth.DeadLettered,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Role < result[j].Role })

	List(w, result, len(result))
}

// Health — liveness/readiness probe.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if !h.queue.IsConnected() {
		Error(w, http.StatusServiceUnavailable, ErrCodeInternalError, "message broker unavailable")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
