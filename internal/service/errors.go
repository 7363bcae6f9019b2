package service

import (
	"errors"
	"fmt"
)

// ServiceError represents a business logic error with a code
type ServiceError struct {
	Err     error
	Details map[string]any
	Message string
	Code    string
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeValidation        = "validation_error"
	ErrCodeSlotUnavailable   = "slot_unavailable"
	ErrCodeSlotContended     = "slot_contended"
	ErrCodeInsufficientFunds = "insufficient_funds"
	ErrCodeSignatureInvalid  = "signature_invalid"
	ErrCodeTenantNotFound    = "tenant_not_found"
	ErrCodeBookingNotFound   = "booking_not_found"
	ErrCodeTransientInfra    = "transient_infra_error"
	ErrCodeInternalError     = "internal_error"
)

// ErrPermanent marks a webhook processing failure that retrying cannot fix
// (malformed payload, failed schema validation). The queue terminates such
// events instead of rescheduling them.
var ErrPermanent = errors.New("permanent failure")

// Permanent wraps err so the queue classifies it as non-retryable.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsPermanent reports whether err is a non-retryable processing failure.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
