package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/osse101/BrandishDuels_Go/internal/logger"
)

// ReadinessTimeout bounds a single readiness probe
const ReadinessTimeout = 2 * time.Second

// HealthResponse represents the response for health endpoints
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Backend string `json:"backend,omitempty"`
}

// HealthChecker is a storage backend that can report whether it is reachable
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// HealthCheckFunc adapts a ping function to HealthChecker
type HealthCheckFunc func(ctx context.Context) error

// CheckHealth calls f
func (f HealthCheckFunc) CheckHealth(ctx context.Context) error { return f(ctx) }

// HandleHealthz provides a basic liveness check
func HandleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}

// HandleReadyz reports ready once the storage backend answers a ping
func HandleReadyz(backend string, checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), ReadinessTimeout)
		defer cancel()

		if err := checker.CheckHealth(ctx); err != nil {
			logger.FromContext(r.Context()).Error(LogMsgReadinessFail, "backend", backend, "error", err)
			respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:  "unavailable",
				Message: "storage backend unreachable",
				Backend: backend,
			})
			return
		}

		respondJSON(w, http.StatusOK, HealthResponse{Status: "ok", Backend: backend})
	}
}
