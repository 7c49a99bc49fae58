package errors

import (
	"fmt"
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

// ValidationError represents a single invalid form field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Error codes carried in the error_code extension
const (
	CodeInvalidRequest         = "INVALID_REQUEST"
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeMissingFile            = "MISSING_FILE"
	CodeNotFound               = "NOT_FOUND"
	CodePayloadTooLarge        = "PAYLOAD_TOO_LARGE"
	CodeRateLimitExceeded      = "RATE_LIMIT_EXCEEDED"
	CodeWebSocketUpgradeFailed = "WEBSOCKET_UPGRADE_FAILED"
)

var (
	ErrMissingFile       = New(http.StatusBadRequest, CodeMissingFile, "A workbook file is required")
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, CodeRateLimitExceeded, "Rate limit exceeded")
)

// InvalidRequestWithError reports a body that could not be decoded
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
}

// NewValidationErrors creates a validation failure listing every bad field
func NewValidationErrors(errs []ValidationError) *APIError {
	return NewWithDetails(
		http.StatusBadRequest,
		CodeValidationFailed,
		"Request validation failed",
		errs,
	)
}

// NotFoundError reports a path no route serves
func NotFoundError(path string) *APIError {
	return NewWithDetails(http.StatusNotFound, CodeNotFound, fmt.Sprintf("No resource at %s", path), path)
}

// PayloadTooLarge reports an upload over the configured limit of limit bytes
func PayloadTooLarge(limit int64) *APIError {
	return NewWithDetails(
		http.StatusRequestEntityTooLarge,
		CodePayloadTooLarge,
		fmt.Sprintf("The uploaded workbook exceeds the limit of %d bytes", limit),
		map[string]int64{"limit_bytes": limit},
	)
}

// WebSocketUpgradeFailed reports a refused upgrade. status is the code the
// upgrader chose, such as 403 for a foreign origin.
func WebSocketUpgradeFailed(status int, reason error) *APIError {
	return New(status, CodeWebSocketUpgradeFailed, reason.Error())
}
