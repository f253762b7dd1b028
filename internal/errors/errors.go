// Package errors provides standardized error handling for the campus content proxy.
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents a standardized error code for the proxy service.
type ErrorCode string

const (
	// Client input errors
	PROXY_BAD_REQUEST ErrorCode = "PROXY_BAD_REQUEST" // Malformed or unusable request

	// Resource errors
	PROXY_NOT_FOUND ErrorCode = "PROXY_NOT_FOUND" // No entity matches the identifier

	// Upstream errors. List endpoints never surface these to clients (they
	// degrade to empty canonical lists); detail endpoints map them to 500.
	PROXY_UPSTREAM_UNREACHABLE ErrorCode = "PROXY_UPSTREAM_UNREACHABLE" // Network failure or timeout
	PROXY_UPSTREAM_STATUS      ErrorCode = "PROXY_UPSTREAM_STATUS"      // Non-2xx from the CMS
	PROXY_UPSTREAM_MALFORMED   ErrorCode = "PROXY_UPSTREAM_MALFORMED"   // 200 but unparsable payload

	// Server errors
	PROXY_INTERNAL    ErrorCode = "PROXY_INTERNAL"    // Internal server error
	PROXY_UNAVAILABLE ErrorCode = "PROXY_UNAVAILABLE" // Service unavailable
)

// Error represents a standardized error response.
type Error struct {
	Code          ErrorCode `json:"code"`
	Message       string    `json:"message"`
	CorrelationID string    `json:"correlationId"`
	Details       any       `json:"details,omitempty"`
	HTTPStatus    int       `json:"-"`
}

// New creates a new Error with the specified code and message.
func New(code ErrorCode, message string, correlationID string) *Error {
	return &Error{
		Code:          code,
		Message:       message,
		CorrelationID: correlationID,
		HTTPStatus:    httpStatusCodeForCode(code),
	}
}

// NewWithDetails creates a new Error with the specified code, message, and details.
func NewWithDetails(code ErrorCode, message string, correlationID string, details any) *Error {
	e := New(code, message, correlationID)
	e.Details = details
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s: %s (details: %v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// httpStatusCodeForCode maps error codes to HTTP status codes.
func httpStatusCodeForCode(code ErrorCode) int {
	switch code {
	case PROXY_BAD_REQUEST:
		return http.StatusBadRequest
	case PROXY_NOT_FOUND:
		return http.StatusNotFound
	case PROXY_UNAVAILABLE:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
