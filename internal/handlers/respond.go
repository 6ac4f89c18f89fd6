package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/pyae198022/ShopHub/internal/apperr"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps service errors onto status codes. Internal errors are
// logged and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		slog.Debug("Request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Error: apperr.Message(err), Kind: apperr.KindOf(err).String()})
}

func writeForbidden(w http.ResponseWriter) {
	writeJSON(w, http.StatusForbidden, errorBody{Error: "Forbidden"})
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validationf("handlers.decodeJSON", "request body is empty")
		}
		return apperr.Wrap(apperr.Validation, "handlers.decodeJSON", "invalid request body", err)
	}
	return nil
}
