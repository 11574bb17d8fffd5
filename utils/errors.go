package utils

import (
	"context"
	"fmt"
	"net/http"
)

type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

func NewAPIErrorWithDetails(code int, message, details string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Protocol errors: misconfiguration, never retried by the dispatcher.
var (
	ErrMissingHeaders  = NewAPIError(http.StatusBadRequest, "Missing required signature headers")
	ErrInvalidRequest  = NewAPIError(http.StatusBadRequest, "Invalid request")
	ErrUnknownInstance = NewAPIError(http.StatusForbidden, "Unknown instance")
	ErrIPNotAllowed    = NewAPIError(http.StatusForbidden, "Request IP is not allowed")
	ErrBadSignature    = NewAPIError(http.StatusUnauthorized, "Invalid signature")
	ErrStaleTimestamp  = NewAPIError(http.StatusConflict, "Timestamp outside allowed window")
	ErrNonceReplayed   = NewAPIError(http.StatusConflict, "Nonce replay detected")
)

var (
	ErrRateLimited    = NewAPIError(http.StatusTooManyRequests, "Rate limit exceeded")
	ErrInternalServer = NewAPIError(http.StatusInternalServerError, "Internal server error")
)

func WrapError(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

func LogError(ctx context.Context, err error, message string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}

	fields["error"] = err.Error()

	Error(ctx, message, fields)
}
