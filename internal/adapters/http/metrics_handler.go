package http

import (
	"errors"
	"net/http"
	"time"

	"fleetmon-server/internal/application/monitoring"
	"fleetmon-server/internal/domain"
)

const defaultHistoryWindow = time.Hour

type MetricsHandler struct {
	svc domain.MonitoringService
}

func NewMetricsHandler(svc domain.MonitoringService) *MetricsHandler {
	return &MetricsHandler{svc: svc}
}

// Current starts monitoring on first read; data is null until the first
// sample lands.
func (h *MetricsHandler) Current(w http.ResponseWriter, r *http.Request) {
	metrics := h.svc.GetOrStartMetrics(r.Context(), r.PathValue("id"))

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "OK",
		Data:    metrics,
	})
}

func (h *MetricsHandler) Processes(w http.ResponseWriter, r *http.Request) {
	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "OK",
		Data:    h.svc.Processes(r.Context(), r.PathValue("id")),
	})
}

func (h *MetricsHandler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := GetTime(q, "from")
	if err != nil {
		JSONValidationError(w, map[string]string{"from": "The from must be an RFC3339 timestamp."})
		return
	}
	to, err := GetTime(q, "to")
	if err != nil {
		JSONValidationError(w, map[string]string{"to": "The to must be an RFC3339 timestamp."})
		return
	}

	end := time.Now().UTC()
	if to != nil {
		end = *to
	}
	start := end.Add(-defaultHistoryWindow)
	if from != nil {
		start = *from
	}

	history, err := h.svc.History(r.Context(), r.PathValue("id"), start, end)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "failed to get metrics history")
		return
	}

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "OK",
		Data:    history,
	})
}

func (h *MetricsHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.StartMonitoring(r.Context(), r.PathValue("id")); err != nil {
		switch {
		case errors.Is(err, domain.ErrServerNotFound):
			JSONError(w, http.StatusNotFound, "server not found")
		case errors.Is(err, monitoring.ErrRegistryClosed):
			JSONError(w, http.StatusServiceUnavailable, "monitoring is shutting down")
		default:
			JSONError(w, http.StatusInternalServerError, "failed to start monitoring")
		}
		return
	}

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "Monitoring started",
	})
}

func (h *MetricsHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.StopMonitoring(r.Context(), r.PathValue("id")); err != nil {
		JSONError(w, http.StatusInternalServerError, "failed to stop monitoring")
		return
	}

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "Monitoring stopped",
	})
}

func (h *MetricsHandler) Monitored(w http.ResponseWriter, r *http.Request) {
	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "OK",
		Data:    h.svc.Monitored(),
	})
}
