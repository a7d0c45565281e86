// internal/http/respond.go
package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// JSON writes data with the given status. Encode failures after the header
// has gone out can only be logged.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

// Error writes a JSON error body, matching the shape handlers use for
// domain-level denials.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, map[string]string{"error": code, "message": message})
}
