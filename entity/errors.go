package entity

import (
	"fmt"
)

// OTPReason classifies why an OTP validation failed
type OTPReason string

const (
	OTPNotFound OTPReason = "NOT_FOUND"
	OTPExpired  OTPReason = "EXPIRED"
	OTPMismatch OTPReason = "MISMATCH"
)

// OTPError reports a failed OTP validation. A mismatch does not consume the
// record, so the caller may retry until expiry.
type OTPError struct {
	Reason OTPReason
}

func (e *OTPError) Error() string {
	switch e.Reason {
	case OTPNotFound:
		return "no pending OTP found"
	case OTPExpired:
		return "OTP has expired"
	case OTPMismatch:
		return "OTP code does not match"
	default:
		return fmt.Sprintf("OTP validation failed: %s", string(e.Reason))
	}
}

var (
	ErrOTPNotFound = &OTPError{Reason: OTPNotFound}
	ErrOTPExpired  = &OTPError{Reason: OTPExpired}
	ErrOTPMismatch = &OTPError{Reason: OTPMismatch}
)

// ValidationError reports missing or malformed input (HTTP 400)
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error with a formatted message
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown subject (HTTP 404)
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}
