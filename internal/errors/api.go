package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// NewAPIError creates a new APIError with the given parameters
func NewAPIError(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// Predefined error types for common scenarios
var (
	ErrInvalidRequest   = NewAPIError(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrMissingParameter = NewAPIError(http.StatusBadRequest, "MISSING_PARAMETER", "Required parameter is missing")
	ErrNotFound         = NewAPIError(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrInternalServer   = NewAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
)

// APIErrorFrom maps a pipeline error to the appropriate HTTP error response.
// Configuration and input problems surface as 400s, missing artifacts as
// 404s, everything else as a 500.
func APIErrorFrom(err error) *APIError {
	switch KindOf(err) {
	case KindConfig, KindInput:
		return &APIError{
			StatusCode: http.StatusBadRequest,
			ErrorCode:  "INVALID_REQUEST",
			Message:    err.Error(),
		}
	case KindArtifact:
		return &APIError{
			StatusCode: http.StatusNotFound,
			ErrorCode:  "NOT_FOUND",
			Message:    err.Error(),
		}
	case KindData:
		return &APIError{
			StatusCode: http.StatusUnprocessableEntity,
			ErrorCode:  "UNPROCESSABLE_ENTITY",
			Message:    err.Error(),
		}
	default:
		return &APIError{
			StatusCode: http.StatusInternalServerError,
			ErrorCode:  "INTERNAL_SERVER_ERROR",
			Message:    err.Error(),
		}
	}
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(err *APIError) *ErrorResponse {
	return &ErrorResponse{
		Success: false,
		Error:   err,
	}
}

// Render implements the render.Renderer interface
func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return e.Error.Render(w, r)
}
