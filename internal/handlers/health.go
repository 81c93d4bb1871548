package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

var startTime = time.Now()

// Pinger is a backing store that can report whether it is reachable.
// pgxpool.Pool satisfies it directly.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides liveness and readiness probes.
type HealthHandler struct {
	db         Pinger
	complaints Pinger // nil when the in-memory store is in use
	logger     *zap.SugaredLogger
}

// NewHealthHandler creates a new health handler. The complaints pinger
// may be nil when no external complaint store is configured.
func NewHealthHandler(db, complaints Pinger, logger *zap.SugaredLogger) *HealthHandler {
	return &HealthHandler{db: db, complaints: complaints, logger: logger}
}

// Check handles GET /api/health (liveness probe).
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(startTime).String(),
	})
}

// Ready handles GET /api/health/ready (readiness probe). Not ready until
// every configured backing store answers a ping.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not ready",
			"database": "disconnected",
		})
		return
	}

	complaints := "in-memory"
	if h.complaints != nil {
		if err := h.complaints.Ping(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":     "not ready",
				"database":   "connected",
				"complaints": "disconnected",
			})
			return
		}
		complaints = "connected"
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":     "ready",
		"database":   "connected",
		"complaints": complaints,
		"uptime":     time.Since(startTime).String(),
	})
}
