// Package dErrors defines the coded domain errors shared across services,
// stores and transport. Handlers translate codes to HTTP statuses through
// ToHTTPStatus; services construct errors with New or Wrap and callers branch
// with Is instead of string matching.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain failure. The string value is what goes on
// the wire in error envelopes.
type Code string

const (
	// CodeBadRequest covers malformed payloads and unknown filter fields.
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized covers missing or invalid caller credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden covers disallowed mutations, e.g. changing a username.
	CodeForbidden Code = "forbidden"
	// CodeNotFound covers lookups of ids that do not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict covers uniqueness or referential constraint violations.
	CodeConflict Code = "conflict"
	// CodeTooManyRequests covers login throttling after repeated failures.
	CodeTooManyRequests Code = "too_many_requests"
	// CodeInvalidPolicy covers membership type cutoffs no calendar date can
	// satisfy. Rejected at construction, never at expiry computation.
	CodeInvalidPolicy Code = "invalid_policy"
	// CodeDuplicateCredential is an internal consistency failure: a member
	// ended up with a second credential. Should be unreachable while issuance
	// shares the member-creation transaction.
	CodeDuplicateCredential Code = "duplicate_credential"
	// CodeInternal is the fallback for unexpected failures.
	CodeInternal Code = "internal_error"
)

// Error carries a code, a caller-facing message and an optional cause.
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

func (e *Error) Unwrap() error {
	return e.cause
}

// New builds a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. The cause stays
// reachable through errors.Unwrap but its text never reaches clients.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal so unexpected
// errors never leak detail through a more permissive status.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// MessageOf extracts the caller-facing message from err, empty for non-domain
// errors.
func MessageOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return ""
}

// ToHTTPStatus maps a domain code to its HTTP response status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeInvalidPolicy:
		return http.StatusUnprocessableEntity
	case CodeDuplicateCredential, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
