package providers

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCategory defines the normalized failure taxonomy
type ErrorCategory string

const (
	// ErrorTimeout indicates the registry took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the registry returned malformed JSON or XML
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorProviderOutage indicates the registry is unavailable or its
	// circuit is open
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorContractMismatch indicates the response no longer matches the
	// expected envelope
	ErrorContractMismatch ErrorCategory = "contract_mismatch"

	// ErrorNotFound indicates the registry answered without a reference
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorRateLimited indicates the outbound limiter or the registry
	// refused the call
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInvalidInput indicates the query was rejected before any call
	ErrorInvalidInput ErrorCategory = "invalid_input"

	// ErrorCancelled indicates the caller abandoned the request before
	// the registry answered
	ErrorCancelled ErrorCategory = "cancelled"

	// ErrorInternal indicates an unexpected internal error
	ErrorInternal ErrorCategory = "internal"
)

// ProviderError wraps tier failures with normalized categorization
type ProviderError struct {
	Category   ErrorCategory
	Tier       string
	Message    string
	Underlying error
	Retryable  bool // Whether a later attempt could succeed
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("tier %s [%s]: %s: %v", e.Tier, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("tier %s [%s]: %s", e.Tier, e.Category, e.Message)
}

// Unwrap supports error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError creates a new normalized tier error
func NewProviderError(category ErrorCategory, tier, message string, underlying error) *ProviderError {
	retryable := category == ErrorTimeout ||
		category == ErrorProviderOutage ||
		category == ErrorRateLimited

	return &ProviderError{
		Category:   category,
		Tier:       tier,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ErrorCancelled
	}
	return ErrorInternal
}

// Message returns the human-readable part of a tier error, without the
// tier and category decoration.
func Message(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// IsCounted reports whether err should count against a tier's circuit
// breaker. Registry answers without a reference, rejected input and
// caller cancellations say nothing about the tier's health.
func IsCounted(err error) bool {
	switch GetCategory(err) {
	case ErrorNotFound, ErrorInvalidInput, ErrorCancelled:
		return false
	default:
		return err != nil
	}
}
