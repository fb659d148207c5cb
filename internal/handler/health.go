package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// ReadinessChecker reports whether the position poller completed at least
// one cycle.
type ReadinessChecker interface {
	IsReady() bool
}

type HealthHandler struct {
	ingestor ReadinessChecker
	pinger   func(ctx context.Context) (int, error)
	logger   *slog.Logger
}

// NewHealthHandler takes the poller plus a callback returning the trip count,
// so health does not depend on the store package directly.
func NewHealthHandler(ingestor ReadinessChecker, tripCount func(ctx context.Context) (int, error), logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		ingestor: ingestor,
		pinger:   tripCount,
		logger:   logger.With("component", "health_handler"),
	}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Healthz handles GET /healthz. Liveness only.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{Status: "ok", Timestamp: time.Now().UTC()})
}

// Readyz handles GET /readyz. Ready once the poller completed a cycle, or
// when schedule data is present so the static endpoints can already serve.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.ingestor != nil && h.ingestor.IsReady() {
		respondJSON(w, http.StatusOK, healthResponse{Status: "ready", Timestamp: time.Now().UTC()})
		return
	}

	if h.pinger != nil {
		trips, err := h.pinger(r.Context())
		if err == nil && trips > 0 {
			respondJSON(w, http.StatusOK, healthResponse{Status: "ready", Timestamp: time.Now().UTC()})
			return
		}
		if err != nil {
			h.logger.Warn("readiness check failed", "error", err)
		}
	}

	respondJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "not ready", Timestamp: time.Now().UTC()})
}
