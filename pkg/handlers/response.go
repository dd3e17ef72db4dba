package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/listing-explorer/pkg/apperrors"
	"github.com/ekaya-inc/listing-explorer/pkg/logging"
)

// ApiResponse is the envelope for JSON API responses.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	// Warning is set when the query succeeded but nothing matched.
	Warning string `json:"warning,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(ApiResponse{
		Success: false,
		Error:   errorCode,
		Message: message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// errorStatus maps an engine or session error to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrNotConnected):
		return http.StatusUnauthorized, "not_connected"
	case errors.Is(err, apperrors.ErrInvalidFilter):
		return http.StatusBadRequest, "invalid_filter"
	case errors.Is(err, apperrors.ErrInvalidIdentifier):
		return http.StatusBadRequest, "invalid_identifier"
	case errors.Is(err, apperrors.ErrConnection):
		return http.StatusBadGateway, "connection_error"
	case errors.Is(err, apperrors.ErrQuery):
		return http.StatusBadGateway, "query_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// userMessage is the text shown to users for err. Backend messages are kept
// but scrubbed of anything that looks like a credential.
func userMessage(err error) string {
	if errors.Is(err, apperrors.ErrNotConnected) {
		return "Connect to a database to explore listings."
	}
	return logging.SanitizeError(err)
}

// writeServiceError maps err to a JSON error response. Server-side failures
// are logged; client mistakes are not.
func writeServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("code", code),
			zap.String("error", logging.SanitizeError(err)),
		)
	}
	if err := ErrorResponse(w, status, code, userMessage(err)); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
