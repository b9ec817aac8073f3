package handler

import (
	"net/http"
	"time"
)

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	storeBackend string
	started      time.Time
}

// NewHealthHandler creates a HealthHandler reporting the active store backend.
func NewHealthHandler(storeBackend string) *HealthHandler {
	return &HealthHandler{storeBackend: storeBackend, started: time.Now()}
}

// HealthCheck responds with a simple JSON status indicating the server is alive.
// GET /healthz
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"store":     h.storeBackend,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
