// Package handler implements the HTTP endpoints.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iconidentify/ultragrab/internal/domain"
)

// codeInvalidRequest is used for malformed parameters other than the reference.
const codeInvalidRequest = "invalid_request"

// statusClientClosedRequest is recorded when the client left before a response.
const statusClientClosedRequest = 499

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

var errorMessages = map[string]string{
	"invalid_reference":    "a valid media URL or id is required",
	"not_found":            "media not found or private",
	"access_restricted":    "media access is restricted",
	"bot_check":            "origin requested bot verification",
	"timeout":              "metadata extraction timed out",
	"no_renditions":        "no rendition matches the request",
	"upstream_unavailable": "media source is unavailable",
	"history_disabled":     "download history is not enabled",
	"canceled":             "request canceled",
	"internal":             "internal server error",
}

// statusForError maps a domain error to its HTTP status.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidReference):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrHistoryDisabled):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAccessRestricted):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrNoRenditionsAvailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeError maps err onto the error taxonomy. Unclassified errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := domain.ErrorCode(err)
	status := statusForError(err)
	switch status {
	case http.StatusInternalServerError:
		logger.Error("request failed", "error", err)
	case statusClientClosedRequest:
		logger.Debug("client canceled request", "error", err)
	}
	writeCode(w, status, code, errorMessages[code])
}
