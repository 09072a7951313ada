package http

import (
	"errors"
	"net/http"

	"fleetmon-server/internal/adapters/http/request"
	"fleetmon-server/internal/domain"
)

type LogHandler struct {
	svc domain.LogService
}

func NewLogHandler(svc domain.LogService) *LogHandler {
	return &LogHandler{svc: svc}
}

func (h *LogHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req domain.LogCreateRequest
	if err := request.Decode(r, &req); err != nil {
		JSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if validationErrors := ValidateStruct(req); len(validationErrors) > 0 {
		JSONValidationError(w, validationErrors)
		return
	}

	entry, err := h.svc.Create(r.Context(), req)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "failed to store log entry")
		return
	}

	JSONSuccess(w, http.StatusCreated, APIResponse{
		Message: "Log entry created",
		Data:    entry,
	})
}

func (h *LogHandler) Index(w http.ResponseWriter, r *http.Request) {
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

	filter := domain.LogFilter{
		From:      from,
		To:        to,
		ServerID:  GetOptionalString(q, "server_id"),
		Component: GetOptionalString(q, "component"),
		Search:    GetString(q, "search", ""),
		Limit:     GetInt(q, "limit", 0),
		Offset:    GetInt(q, "offset", 0),
	}
	for _, l := range GetStringSlice(q, "levels") {
		filter.Levels = append(filter.Levels, domain.LogLevel(l))
	}

	result, err := h.svc.List(r.Context(), filter)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "failed to list logs")
		return
	}

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "OK",
		Data:    result.Data,
		Meta:    result.Meta,
	})
}

func (h *LogHandler) Show(w http.ResponseWriter, r *http.Request) {
	entry, err := h.svc.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrLogNotFound) {
			JSONError(w, http.StatusNotFound, "log entry not found")
			return
		}

		JSONError(w, http.StatusInternalServerError, "failed to get log entry")
		return
	}

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "OK",
		Data:    entry,
	})
}

func (h *LogHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	var filter domain.LogFilter
	if err := request.Decode(r, &filter); err != nil {
		JSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	deleted, err := h.svc.Delete(r.Context(), filter)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "failed to delete logs")
		return
	}

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "Logs deleted",
		Data:    map[string]int64{"deleted": deleted},
	})
}
