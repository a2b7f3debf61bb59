// Package dto holds the JSON shapes of the worker's HTTP endpoints.
package dto

// Response represents a standard API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes returned by the worker's endpoints
const (
	ErrCodeInvalidEvent     = "ERR_INVALID_EVENT"
	ErrCodeUnknownEventKind = "ERR_UNKNOWN_EVENT_KIND"
	ErrCodeRequestTooLarge  = "ERR_REQUEST_TOO_LARGE"
	ErrCodeUnavailable      = "ERR_UNAVAILABLE"
)

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}
