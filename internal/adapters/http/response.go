package http

import (
	"net/http"

	"fleetmon-server/internal/adapters/http/response"
)

type APIResponse = response.Response

func JSONSuccess(w http.ResponseWriter, status int, resp APIResponse) {
	response.Write(w, status, &resp)
}

func JSONError(w http.ResponseWriter, status int, message string) {
	response.Write(w, status, &APIResponse{Message: message})
}

func JSONValidationError(w http.ResponseWriter, errors map[string]string) {
	response.WriteValidationError(w, errors)
}
