package api

import (
	"net/http"
	"time"

	"github.com/skillloop/skillloop-server/internal/api/respond"
)

// CheckHealth handles GET /api/health. Always 200; the body reports
// healthy or unhealthy so probes can distinguish handler failure from
// dependency failure.
func (h *Server) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := "unhealthy"
	if h.isHealthy != nil && h.isHealthy() {
		status = "healthy"
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
