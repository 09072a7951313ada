package http

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether the backing store answers.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	ping    Pinger
	version string
	started time.Time
}

func NewHealthHandler(ping Pinger, version string) *HealthHandler {
	return &HealthHandler{
		ping:    ping,
		version: version,
		started: time.Now(),
	}
}

type healthStatus struct {
	Status   string `json:"status"`
	Database bool   `json:"database"`
	Version  string `json:"version"`
	Uptime   int64  `json:"uptime_seconds"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := healthStatus{
		Status:   "ok",
		Database: h.ping(ctx) == nil,
		Version:  h.version,
		Uptime:   int64(time.Since(h.started).Seconds()),
	}

	code := http.StatusOK
	if !status.Database {
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
	}

	JSONSuccess(w, code, APIResponse{
		Message: status.Status,
		Data:    status,
	})
}
