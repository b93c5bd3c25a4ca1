package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// WriteError responds with a JSON envelope for htmx and JSON clients and a
// plain text body otherwise.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if WantsJSON(r) {
		payload := map[string]any{
			"error":   code,
			"message": msg,
			"status":  status,
		}
		if id := chimw.GetReqID(r.Context()); id != "" {
			payload["request_id"] = id
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(payload)
		return
	}
	http.Error(w, msg, status)
}

// WantsJSON reports whether errors for r should use the JSON envelope.
func WantsJSON(r *http.Request) bool {
	return IsHTMX(r.Context()) || strings.Contains(r.Header.Get("Accept"), "application/json")
}
