// Package httputil provides HTTP utility functions for request and response handling.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/sentinel/internal/errors"
)

// ErrorResponse represents a structured error response. RequestID matches the
// request id recorded on the audit entries for the same request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type errorMapping struct {
	target     error
	statusCode int
	code       string
	message    string
}

// errorMappings is checked in order. A mapping without a message exposes err.Error().
var errorMappings = []errorMapping{
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found", "The requested resource was not found"},
	{apperrors.ErrConflict, http.StatusConflict, "conflict", "A conflict occurred with existing data"},
	{apperrors.ErrInvalidInput, http.StatusUnprocessableEntity, "invalid_input", ""},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "Authentication is required"},
	{apperrors.ErrUnavailable, http.StatusServiceUnavailable, "unavailable", "The service is temporarily unavailable"},
	{apperrors.ErrForbidden, http.StatusForbidden, "forbidden", "You don't have permission to access this resource"},
}

// HandleErrorGin maps domain errors to HTTP status codes and writes a JSON response.
// Unknown errors become a 500 without details; the full error is only logged.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	statusCode := http.StatusInternalServerError
	errorResponse := ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	}

	for _, mapping := range errorMappings {
		if !apperrors.Is(err, mapping.target) {
			continue
		}
		statusCode = mapping.statusCode
		errorResponse.Error = mapping.code
		errorResponse.Message = mapping.message
		if mapping.message == "" {
			errorResponse.Message = err.Error()
		}
		break
	}
	errorResponse.RequestID = requestid.Get(c)

	if logger != nil {
		logger.Error("request failed",
			slog.Int("status_code", statusCode),
			slog.String("error_code", errorResponse.Error),
			slog.String("request_id", errorResponse.RequestID),
			slog.Any("error", err),
		)
	}

	c.JSON(statusCode, errorResponse)
}

// HandleBadRequestGin writes a 400 for malformed JSON or parameters.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	writeClientError(c, http.StatusBadRequest, "bad_request", err, logger)
}

// HandleValidationErrorGin writes a 422 for validation errors.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	writeClientError(c, http.StatusUnprocessableEntity, "validation_error", err, logger)
}

func writeClientError(c *gin.Context, statusCode int, code string, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("client error",
			slog.String("error_code", code),
			slog.String("request_id", requestid.Get(c)),
			slog.Any("error", err),
		)
	}

	c.JSON(statusCode, ErrorResponse{
		Error:     code,
		Message:   err.Error(),
		RequestID: requestid.Get(c),
	})
}
