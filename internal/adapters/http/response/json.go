// Package response
package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
)

type Response struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Meta    any    `json:"meta,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// Write encodes resp before touching w so an encoding failure can still
// produce a 500.
func Write(w http.ResponseWriter, status int, resp *Response) {
	if resp == nil || status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(resp); err != nil {
		http.Error(w, "internal server error: failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// WriteValidationError responds 422 with the first field error (by field
// name) as the message and every error under "errors".
func WriteValidationError(w http.ResponseWriter, errors map[string]string) {
	Write(w, http.StatusUnprocessableEntity, &Response{
		Message: Summarize(errors),
		Errors:  errors,
	})
}

func Summarize(errors map[string]string) string {
	if len(errors) == 0 {
		return "The given data was invalid."
	}

	keys := make([]string, 0, len(errors))
	for k := range errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mainMessage := errors[keys[0]]

	switch remaining := len(errors) - 1; remaining {
	case 0:
		return mainMessage
	case 1:
		return fmt.Sprintf("%s (and 1 more error)", mainMessage)
	default:
		return fmt.Sprintf("%s (and %d more errors)", mainMessage, remaining)
	}
}
