// Package httpx holds the JSON response helpers every orderdesk handler
// writes through. Errors follow one shape: {"error": code, "details": ...},
// with details carrying validation violations when present.
package httpx

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// JSON marshals payload and writes it with the given status. The body is
// marshaled before the header goes out, so an encoding failure becomes a
// clean 500 instead of a truncated response. A nil payload writes "null".
func JSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// JSONError writes an ErrorResponse with the given status and code.
func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}
