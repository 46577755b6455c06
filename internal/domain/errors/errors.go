package errors

import (
	"errors"
	"fmt"
)

var (
	// Lookup errors
	ErrCardNotFound    = errors.New("card not found")
	ErrShopperNotFound = errors.New("shopper not found")
	ErrPaymentNotFound = errors.New("payment not found")

	// Creation errors
	ErrCurrencyMismatch = errors.New("shopper currency is not correct")
	ErrInvalidAmount    = errors.New("invalid amount")

	// State machine errors
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrPaymentFinalized       = errors.New("payment already finalized")

	// Balance errors
	ErrInsufficientBalance = errors.New("insufficient balance")

	// Lock errors
	ErrLockAcquisitionFailed = errors.New("failed to acquire lock")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
