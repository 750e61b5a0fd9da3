package domain

import "fmt"

// Error types for consistent error handling across the engine.

// ErrProviderNotFound indicates an unknown provider id.
type ErrProviderNotFound struct {
	ID string
}

func (e *ErrProviderNotFound) Error() string {
	return fmt.Sprintf("provider not found: %s", e.ID)
}

// ErrNoEligibleProvider indicates the selector found no provider meeting
// the requirements. Terminal for the request.
type ErrNoEligibleProvider struct {
	Reason string
}

func (e *ErrNoEligibleProvider) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("no eligible provider: %s", e.Reason)
	}
	return "no eligible provider"
}

// ErrProviderInvocation indicates a live provider call failed.
type ErrProviderInvocation struct {
	ProviderID string
	Err        error
}

func (e *ErrProviderInvocation) Error() string {
	return fmt.Sprintf("provider invocation failed [%s]: %v", e.ProviderID, e.Err)
}

func (e *ErrProviderInvocation) Unwrap() error {
	return e.Err
}

// ErrFallbackExhausted indicates both the primary and the fallback provider
// failed. Terminal for the request.
type ErrFallbackExhausted struct {
	Primary  string
	Fallback string
}

func (e *ErrFallbackExhausted) Error() string {
	return fmt.Sprintf("All AI providers failed (primary=%s fallback=%s)", e.Primary, e.Fallback)
}

// ErrAlertNotFound indicates an unknown or already-resolved alert id.
type ErrAlertNotFound struct {
	ID string
}

func (e *ErrAlertNotFound) Error() string {
	return fmt.Sprintf("alert not found: %s", e.ID)
}

// ErrExternalService indicates a failure in an external collaborator call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open for a provider.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates a missing or invalid operator token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
