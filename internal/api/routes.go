package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Orchestrations
	mux.Handle("POST /api/v1/orchestrations", chain(http.HandlerFunc(h.CreateOrchestration)))
	mux.Handle("GET /api/v1/orchestrations", chain(http.HandlerFunc(h.ListOrchestrations)))
	mux.Handle("GET /api/v1/orchestrations/{id}", chain(http.HandlerFunc(h.GetOrchestration)))
	mux.Handle("POST /api/v1/orchestrations/{id}/stop", chain(http.HandlerFunc(h.StopOrchestration)))

	// Queues
	mux.Handle("GET /api/v1/queues", chain(http.HandlerFunc(h.ListQueues)))

	// Health
	mux.Handle("GET /healthz", http.HandlerFunc(h.Health))
}
