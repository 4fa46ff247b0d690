package web

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/vbonduro/propertydesk/internal/admin"
	"github.com/vbonduro/propertydesk/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to write json response", "error", err)
	}
}

// errorBody is the JSON shape of every failed admin or public API call.
type errorBody struct {
	Error    string         `json:"error"`
	Notices  []admin.Notice `json:"notices,omitempty"`
	Redirect string         `json:"redirect,omitempty"`
}

// statusFor maps a domain error kind to an HTTP status.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindAuth:
		return http.StatusUnauthorized
	case domain.KindFetch, domain.KindUpload, domain.KindWrite:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
