// Package derrors defines the typed error vocabulary of the facepay core.
//
// Services return these so transports can map failures to status codes and
// callers can branch on the reason without string matching. Stores return
// sentinel errors (pkg/platform/sentinel) instead; services translate at the
// boundary.
package derrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain failure. Codes are part of the external contract:
// transports serialize them verbatim and off-chain consumers branch on them.
type Code string

const (
	// Registry failures.
	CodeDuplicateIdentity Code = "duplicate_identity"
	CodeIdentityNotFound  Code = "identity_not_found"

	// Payment failures.
	CodeFingerprintMismatch    Code = "fingerprint_mismatch"
	CodeSelfPaymentNotAllowed  Code = "self_payment_not_allowed"
	CodeBelowMinimum           Code = "below_minimum"
	CodeUnsupportedAsset       Code = "unsupported_asset"
	CodeInvalidSwapParameters  Code = "invalid_swap_parameters"
	CodeInsufficientFeeBalance Code = "insufficient_fee_balance"
	CodeFeeRateTooHigh         Code = "fee_rate_too_high"

	// Authorization failures.
	CodeNotAuthorized Code = "not_authorized"
	CodeUnauthorized  Code = "unauthorized"

	// Generic plumbing.
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation"
	CodeBadRequest         Code = "bad_request"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// Is reports whether err is (or wraps) a typed domain error.
func Is(err error) bool {
	var de *Error
	return errors.As(err, &de)
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for untyped
// errors so transports never leak raw internals.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the message for the caller-facing envelope. Untyped
// errors get a generic message; their detail stays in logs.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a code to its HTTP status. Kept here so every transport
// agrees on the mapping.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeDuplicateIdentity, CodeConflict:
		return http.StatusConflict
	case CodeIdentityNotFound, CodeNotFound:
		return http.StatusNotFound
	case CodeNotAuthorized:
		return http.StatusForbidden
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeFingerprintMismatch,
		CodeSelfPaymentNotAllowed,
		CodeBelowMinimum,
		CodeUnsupportedAsset,
		CodeInvalidSwapParameters,
		CodeInsufficientFeeBalance,
		CodeFeeRateTooHigh:
		return http.StatusUnprocessableEntity
	case CodeInvalidInput, CodeValidation, CodeBadRequest, CodeInvariantViolation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
