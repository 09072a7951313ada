package http

import (
	"errors"
	"net/http"

	"fleetmon-server/internal/adapters/http/middleware"
	"fleetmon-server/internal/adapters/http/request"
	"fleetmon-server/internal/domain"
)

type ServerHandler struct {
	svc domain.ServerService
}

func NewServerHandler(svc domain.ServerService) *ServerHandler {
	return &ServerHandler{svc: svc}
}

func (h *ServerHandler) Index(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUser(r.Context())

	servers, err := h.svc.List(r.Context(), actor)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "failed to list servers")
		return
	}

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "OK",
		Data:    servers,
	})
}

func (h *ServerHandler) Show(w http.ResponseWriter, r *http.Request) {
	srv, err := h.svc.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServerError(w, err, "failed to get server")
		return
	}

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "OK",
		Data:    srv,
	})
}

func (h *ServerHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req domain.ServerSaveRequest
	if err := request.Decode(r, &req); err != nil {
		JSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if validationErrors := ValidateStruct(req); len(validationErrors) > 0 {
		JSONValidationError(w, validationErrors)
		return
	}

	actor, _ := middleware.GetUser(r.Context())

	srv, err := h.svc.Register(r.Context(), req, actor)
	if err != nil {
		writeServerError(w, err, "failed to register server")
		return
	}

	JSONSuccess(w, http.StatusCreated, APIResponse{
		Message: "Server registered successfully",
		Data:    srv,
	})
}

func (h *ServerHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.ServerSaveRequest
	if err := request.Decode(r, &req); err != nil {
		JSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if validationErrors := ValidateStruct(req); len(validationErrors) > 0 {
		JSONValidationError(w, validationErrors)
		return
	}

	actor, _ := middleware.GetUser(r.Context())

	if err := h.svc.Update(r.Context(), req, r.PathValue("id"), actor); err != nil {
		writeServerError(w, err, "failed to update server")
		return
	}

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "Server updated successfully",
	})
}

func (h *ServerHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.ServerStatusRequest
	if err := request.Decode(r, &req); err != nil {
		JSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor, _ := middleware.GetUser(r.Context())

	if err := h.svc.UpdateStatus(r.Context(), r.PathValue("id"), req.IsOnline, actor); err != nil {
		writeServerError(w, err, "failed to update server status")
		return
	}

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "Server status updated",
	})
}

func (h *ServerHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUser(r.Context())

	if err := h.svc.Delete(r.Context(), r.PathValue("id"), actor); err != nil {
		writeServerError(w, err, "failed to delete server")
		return
	}

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "Server deleted successfully",
	})
}

func (h *ServerHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var req domain.TestConnectionRequest
	if err := request.Decode(r, &req); err != nil {
		JSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if validationErrors := ValidateStruct(req); len(validationErrors) > 0 {
		JSONValidationError(w, validationErrors)
		return
	}

	res, err := h.svc.TestConnection(r.Context(), req)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "failed to test connection")
		return
	}

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: res.Message,
		Data:    res,
	})
}

func writeServerError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrServerNotFound):
		JSONError(w, http.StatusNotFound, "server not found")
	case errors.Is(err, domain.ErrHostnameTaken):
		JSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		JSONError(w, http.StatusForbidden, err.Error())
	default:
		JSONError(w, http.StatusInternalServerError, fallback)
	}
}
