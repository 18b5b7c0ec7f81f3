package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// JSON writes v as a JSON document with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// Text writes a plain-text message with the given status.
func Text(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(msg))
}

// Error writes a human-readable failure. Errors are plain text.
func Error(w http.ResponseWriter, status int, msg string) {
	Text(w, status, msg)
}

// NoContent writes an empty 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
