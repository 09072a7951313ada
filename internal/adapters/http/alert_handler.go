package http

import (
	"errors"
	"net/http"
	"strconv"

	"fleetmon-server/internal/adapters/http/middleware"
	"fleetmon-server/internal/domain"
)

type AlertHandler struct {
	svc domain.AlertService
}

func NewAlertHandler(svc domain.AlertService) *AlertHandler {
	return &AlertHandler{svc: svc}
}

func (h *AlertHandler) Index(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.svc.ListUnacknowledged(r.Context())
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "OK",
		Data:    alerts,
	})
}

func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	alertID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		JSONError(w, http.StatusBadRequest, "invalid alert id")
		return
	}

	actor, _ := middleware.GetUser(r.Context())

	if err := h.svc.Acknowledge(r.Context(), alertID, actor.ID); err != nil {
		if errors.Is(err, domain.ErrAlertNotFound) {
			JSONError(w, http.StatusNotFound, "alert not found")
			return
		}

		JSONError(w, http.StatusInternalServerError, "failed to acknowledge alert")
		return
	}

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "Alert acknowledged",
	})
}
