// Package domainerrors provides typed errors carried across service
// boundaries. Services attach a Code so transports can map failures to
// protocol responses without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure.
type Code string

const (
	// CodeNotFound: the referenced entity does not exist.
	CodeNotFound Code = "not_found"
	// CodePrecondition: a prior step of the onboarding flow is incomplete.
	CodePrecondition Code = "precondition_failed"
	// CodeConflict: the external identifier is already claimed elsewhere.
	CodeConflict Code = "conflict"
	// CodeLocked: an active cooldown rejects further attempts.
	CodeLocked Code = "locked"
	// CodeVerificationFailed: the provider returned a negative verdict.
	CodeVerificationFailed Code = "verification_failed"
	// CodeSessionInvalid: missing, mismatched, or expired session token.
	CodeSessionInvalid Code = "session_invalid"
	// CodeUnavailable: provider transport failure; safe to retry.
	CodeUnavailable Code = "service_unavailable"
	// CodeUnauthorized: caller lacks the required credential.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden: caller is authenticated but not allowed.
	CodeForbidden Code = "forbidden"
	// CodeBadRequest: malformed request at the transport boundary.
	CodeBadRequest Code = "bad_request"
	// CodeInvalidInput: input failed domain validation.
	CodeInvalidInput Code = "invalid_input"
	// CodeInvariantViolation: a domain invariant would be broken.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal: unexpected infrastructure failure.
	CodeInternal Code = "internal"
)

// Error is a domain error with a classification code and optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message, preserving the cause chain.
// Wrapping nil returns nil.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unclassified errors.
func CodeOf(err error) Code {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code
	}
	return CodeInternal
}

// Is supports errors.Is matching on code equality.
func (e *Error) Is(target error) bool {
	var dErr *Error
	if errors.As(target, &dErr) {
		return e.Code == dErr.Code
	}
	return false
}
