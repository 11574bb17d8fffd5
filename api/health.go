package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

type HealthChecker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	role     string
	checkers []HealthChecker
}

func NewHealthHandler(role string, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{role: role, checkers: checkers}
}

func (h *HealthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	components := make(map[string]string)
	for _, checker := range h.checkers {
		if err := checker.HealthCheck(ctx); err != nil {
			components[checker.Name()] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		components[checker.Name()] = "healthy"
	}

	writeJSON(w, status, map[string]interface{}{
		"status":     statusWord(status),
		"role":       h.role,
		"components": components,
		"timestamp":  time.Now().UTC(),
	})
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "healthy"
	}
	return "degraded"
}
