package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker is implemented by the database handle.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler reports process and database liveness.
type HealthHandler struct {
	db HealthChecker
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db HealthChecker) *HealthHandler {
	return &HealthHandler{db: db}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.Health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Database: "unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Database: "ok"})
}
