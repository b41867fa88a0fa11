package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/erazemk/labtrack/internal/apperr"
)

// okResponse is the acknowledgement for a successful mutation.
var okResponse = map[string]bool{"ok": true}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// jsonError writes err as {"error": kind, "detail": text}. Internal causes
// are logged, never written.
func jsonError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindServer {
		slog.Error("request failed", "error", err)
	}
	jsonResponse(w, apperr.Status(kind), map[string]string{
		"error":  string(kind),
		"detail": apperr.DetailOf(err),
	})
}
