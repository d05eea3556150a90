package api

import (
	"net/http"

	"github.com/flagmap/flagmap/server/internal/api/respond"
)

// HealthHandler reports aggregated service health.
type HealthHandler struct {
	isHealthy func() bool
}

func NewHealthHandler(isHealthy func() bool) *HealthHandler {
	return &HealthHandler{isHealthy: isHealthy}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h.isHealthy != nil && !h.isHealthy() {
		respond.Fail(w, http.StatusServiceUnavailable, "service unhealthy")
		return
	}
	respond.Success(w, map[string]string{"status": "healthy"})
}
