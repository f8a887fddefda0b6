package handlers

import (
	"context"
	"net/http"
	"time"
)

const healthTimeout = 2 * time.Second

// HealthHandler responds with service health information.
type HealthHandler struct {
	Database HealthChecker
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload := map[string]string{"status": "ok"}
	status := http.StatusOK

	if h.Database != nil {
		pingCtx, cancel := context.WithTimeout(ctx, healthTimeout)
		defer cancel()
		if err := h.Database.Ping(pingCtx); err != nil {
			payload["status"] = "degraded"
			payload["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			payload["database"] = "ok"
		}
	}

	respondJSON(ctx, w, status, payload)
}
