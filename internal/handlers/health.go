package handlers

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"
)

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler reports the state of every registered dependency
type HealthHandler struct {
	checks map[string]HealthChecker
}

// NewHealthHandler creates a health handler over the named checkers
func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// ServeHTTP handles GET /health
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	healthy := true

	for name, check := range h.checks {
		if err := check.Health(r.Context()); err != nil {
			body[name] = "down"
			healthy = false
			continue
		}
		body[name] = "up"
	}

	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		body["status"] = "unhealthy"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(body)
}
