package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iqbaliqra/Weatherapp/internal/pkg/response"
)

// Pinger is a dependency that can report its health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness checks.
type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler creates a health handler that checks the named dependencies.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			status[name] = "unavailable"
			status["status"] = "error"
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "connected"
	}

	response.JSON(w, code, status)
}
