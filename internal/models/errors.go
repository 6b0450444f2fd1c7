package models

import (
	"fmt"
	"net/http"
)

// Error code strings carried in the response envelope.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeNotFound    = "NOT_FOUND"
	CodeUpstream    = "UPSTREAM_UNAVAILABLE"
	CodeRateLimit   = "RATE_LIMITED"
	CodeInternal    = "INTERNAL_ERROR"
	CodeNotContract = "NOT_A_CONTRACT"
)

// APIError is a typed request-level failure that maps onto an HTTP status.
// Components return these (usually wrapped); the HTTP layer unwraps them
// with errors.As to pick the status and code.
type APIError struct {
	Code    string
	Status  int
	Message string
	Cause   error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Cause }

// NewValidationError reports malformed client input.
func NewValidationError(msg string) *APIError {
	return &APIError{Code: CodeValidation, Status: http.StatusBadRequest, Message: msg}
}

// NewNotFoundError reports an unknown id, session, or uncached analysis.
func NewNotFoundError(msg string) *APIError {
	return &APIError{Code: CodeNotFound, Status: http.StatusNotFound, Message: msg}
}

// NewNotContractError reports an address with no deployed code.
func NewNotContractError(address string) *APIError {
	return &APIError{
		Code:    CodeNotContract,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("address %s is not a contract", address),
	}
}

// NewUpstreamError reports a chain-provider or inference-provider failure,
// including unparsable upstream payloads.
func NewUpstreamError(msg string, cause error) *APIError {
	return &APIError{Code: CodeUpstream, Status: http.StatusBadGateway, Message: msg, Cause: cause}
}

// NewRateLimitError reports an exceeded per-IP window.
func NewRateLimitError(msg string) *APIError {
	return &APIError{Code: CodeRateLimit, Status: http.StatusTooManyRequests, Message: msg}
}
