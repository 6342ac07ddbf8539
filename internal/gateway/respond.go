// Package gateway exposes the HTTP surface of the scrobble gateway:
// session status and auth-flow endpoints, and scrobble relay endpoints.
package gateway

import (
	"net/http"

	"github.com/goccy/go-json"
)

// errorResponse is the uniform failure shape. Handlers convert every
// internal error into this; no raw error ever reaches a response.
type errorResponse struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError responds with {"error": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure responds with {"success": false, "error": msg}, the
// shape used by the callback and exchange endpoints.
func writeFailure(w http.ResponseWriter, status int, msg string) {
	success := false
	writeJSON(w, status, errorResponse{Success: &success, Error: msg})
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
