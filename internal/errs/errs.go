// Package errs defines the error taxonomy shared by the certM3 services.
// Services return *Error values classified by Kind; the API layer maps
// kinds to HTTP status codes in exactly one place.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and for the transport mapping.
type Kind int

const (
	// KindUnknown is the zero value and never returned deliberately.
	KindUnknown Kind = iota

	// KindNotFound means a referenced entity does not exist.
	KindNotFound

	// KindConflict means a uniqueness or protected-resource violation.
	KindConflict

	// KindInvalidState means the operation is not valid for the entity's
	// current lifecycle state.
	KindInvalidState

	// KindInvalidInput means malformed input: bad CSR, bad date ordering,
	// wrong challenge, malformed token format.
	KindInvalidInput

	// KindUnauthorized means a bad, expired, or mismatched credential.
	KindUnauthorized

	// KindForbidden means a policy-protected operation was attempted.
	KindForbidden

	// KindInternal means an unexpected failure: store unreachable, CA key
	// unavailable.
	KindInternal
)

// String returns the kind name used in API error payloads.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	case KindInvalidInput:
		return "invalid_input"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a classified error, optionally naming the offending field.
type Error struct {
	Kind  Kind
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Field, e.Msg, e.Err)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	default:
		return e.Msg
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// NewField creates a classified error naming the field that caused it.
func NewField(kind Kind, field, msg string) *Error {
	return &Error{Kind: kind, Field: field, Msg: msg}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind from an error chain. Unclassified errors are
// reported as KindInternal so they are never mistaken for caller mistakes.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
