package handlers

import (
	"net/http"

	"github.com/Genius-apple/open-alpha/pkg/database"
	"github.com/Genius-apple/open-alpha/pkg/logger"
)

// HealthHandler reports service liveness and, when reports live in
// Postgres, database health.
type HealthHandler struct {
	db     *database.DB // nil with the file report backend
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.DB, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: log,
	}
}

// Check returns server health status
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":  "ok",
		"service": "open-alpha-api",
	}

	if h.db != nil {
		status, err := h.db.HealthCheck(r.Context())
		if err != nil {
			h.logger.WithError(err).Warn("Database health check failed")
			resp["status"] = "degraded"
			resp["database"] = map[string]string{"status": "unhealthy", "error": err.Error()}
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp["database"] = status
	}

	respondJSON(w, http.StatusOK, resp)
}
