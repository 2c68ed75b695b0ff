// Package httputil provides HTTP utility functions for request and response handling.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/dsorch/orchestrator/internal/errors"
)

// Envelope status discriminators.
const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
	// StatusFailed marks errors that were recorded on an orchestration process.
	StatusFailed = "FAILED"
)

// SuccessResponse is the envelope of every successful answer.
type SuccessResponse struct {
	Status          string `json:"status"`
	StatusCode      int    `json:"status_code"`
	OrchestrationID string `json:"orchestration_id,omitempty"`
	Data            any    `json:"data"`
}

// ErrorResponse is the envelope of every failed answer.
type ErrorResponse struct {
	Status          string `json:"status"`
	Error           string `json:"error"`
	Details         string `json:"details,omitempty"`
	StatusCode      int    `json:"status_code"`
	OrchestrationID string `json:"orchestration_id,omitempty"`
}

// SuccessGin writes a success envelope.
func SuccessGin(c *gin.Context, statusCode int, orchestrationID string, data any) {
	c.JSON(statusCode, SuccessResponse{
		Status:          StatusSuccess,
		StatusCode:      statusCode,
		OrchestrationID: orchestrationID,
		Data:            data,
	})
}

// HandleErrorGin maps domain errors to HTTP status codes and returns a JSON error envelope using Gin.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	HandleProcessErrorGin(c, err, "", logger)
}

// HandleProcessErrorGin is HandleErrorGin for failures recorded on an orchestration process.
// A non-empty orchestrationID is echoed and marks the envelope FAILED.
func HandleProcessErrorGin(c *gin.Context, err error, orchestrationID string, logger *slog.Logger) {
	if err == nil {
		return
	}

	response := MapError(err)
	if orchestrationID != "" {
		response.Status = StatusFailed
		response.OrchestrationID = orchestrationID
	}

	// Log the full error details (including wrapped errors)
	if logger != nil {
		attrs := []any{
			slog.Int("status_code", response.StatusCode),
			slog.Any("error", err),
		}
		if orchestrationID != "" {
			attrs = append(attrs, slog.String("orchestration_id", orchestrationID))
		}
		if response.StatusCode >= http.StatusInternalServerError {
			logger.Error("request failed", attrs...)
		} else {
			logger.Warn("request failed", attrs...)
		}
	}

	c.JSON(response.StatusCode, response)
}

// HandleBadRequestGin writes a 400 Bad Request envelope for malformed JSON or parameters using Gin.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Status:     StatusError,
		Error:      "Missing or invalid JSON body",
		Details:    err.Error(),
		StatusCode: http.StatusBadRequest,
	})
}

// MapError builds the error envelope for err. Only upstream-provided text and messages built by
// this service are exposed; storage failures never reveal local paths.
func MapError(err error) ErrorResponse {
	response := ErrorResponse{Status: StatusError}

	var upstreamErr *apperrors.UpstreamError

	switch {
	case apperrors.Is(err, apperrors.ErrUnauthorized):
		response.StatusCode = http.StatusUnauthorized
		response.Error = "Authentication is required"
		response.Details = err.Error()

	case apperrors.Is(err, apperrors.ErrForbidden):
		response.StatusCode = http.StatusForbidden
		response.Error = "The supplied credentials are not accepted"
		response.Details = err.Error()

	case apperrors.Is(err, apperrors.ErrInvalidInput):
		response.StatusCode = http.StatusBadRequest
		response.Error = "Request validation failed"
		response.Details = err.Error()

	case apperrors.Is(err, apperrors.ErrNotFound):
		response.StatusCode = http.StatusNotFound
		response.Error = "The requested resource was not found"
		response.Details = err.Error()

	case apperrors.Is(err, apperrors.ErrConflict):
		response.StatusCode = http.StatusConflict
		response.Error = "A conflict occurred with existing data"
		response.Details = err.Error()

	case apperrors.Is(err, apperrors.ErrUpstreamTimeout):
		response.StatusCode = http.StatusGatewayTimeout
		response.Error = "Connection to the connector timed out"
		response.Details = err.Error()

	case apperrors.Is(err, apperrors.ErrUpstreamUnavailable):
		response.StatusCode = http.StatusBadGateway
		response.Error = "Failed to connect to the connector"
		response.Details = err.Error()

	case apperrors.As(err, &upstreamErr):
		response.StatusCode = upstreamErr.StatusCode
		if response.StatusCode < http.StatusBadRequest {
			// The upstream answered successfully but the body was unusable.
			response.StatusCode = http.StatusBadGateway
		}
		response.Error = err.Error()
		response.Details = upstreamErr.Body

	case apperrors.Is(err, apperrors.ErrUpstreamProtocol):
		response.StatusCode = http.StatusBadGateway
		response.Error = err.Error()

	case apperrors.Is(err, apperrors.ErrStorage):
		response.StatusCode = http.StatusInternalServerError
		response.Error = "Failed to store the downloaded content"

	default:
		response.StatusCode = http.StatusInternalServerError
		response.Error = "An unexpected error occurred"
		response.Details = err.Error()
	}

	return response
}
