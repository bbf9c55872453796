// Package api serves staged collections and items through a read-only STAC
// API so dryrun output can be browsed before it is posted.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// STACError represents a STAC-compliant error response.
type STACError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	RequestID   string `json:"request_id,omitempty"`
}

// Standard STAC error codes.
const (
	ErrCodeBadRequest       = "BadRequest"
	ErrCodeNotFound         = "NotFound"
	ErrCodeInvalidParameter = "InvalidParameterValue"
	ErrCodeServerError      = "ServerError"
)

// WriteJSON writes a JSON response with the given status code and value.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return writeEncoded(w, status, "application/json", v)
}

// WriteGeoJSON writes a response with the application/geo+json media type.
func WriteGeoJSON(w http.ResponseWriter, status int, v any) error {
	return writeEncoded(w, status, "application/geo+json", v)
}

func writeEncoded(w http.ResponseWriter, status int, mediaType string, v any) error {
	w.Header().Set("Content-Type", mediaType)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response",
			slog.String("content_type", mediaType),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// WriteError writes a STAC-compliant error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeEncoded(w, status, "application/json", STACError{Code: code, Description: message})
}

// WriteBadRequest writes a 400 Bad Request error response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// WriteNotFound writes a 404 Not Found error response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// WriteInvalidParameter writes a 400 Bad Request error for invalid parameters.
func WriteInvalidParameter(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeInvalidParameter, message)
}

// WriteInternalErrorWithRequestID writes a 500 response carrying the request
// id so a failure can be matched to its log line.
func WriteInternalErrorWithRequestID(w http.ResponseWriter, message, requestID string) {
	writeEncoded(w, http.StatusInternalServerError, "application/json", STACError{
		Code:        ErrCodeServerError,
		Description: message,
		RequestID:   requestID,
	})
}
