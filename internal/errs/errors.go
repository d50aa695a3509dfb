// Package errs provides the unified error type used across rowx.
//
// The query helpers never wrap the errors a handle reports; the driver
// packages offer Classify functions that translate native driver errors
// into *errs.Error for callers that want a driver-independent view (the
// HTTP server uses this to pick status codes).
//
// Usage:
//
//	// In a driver classifier, wrap native errors:
//	return errs.Wrap(errs.ErrKindQueryFailed, "undefined table", pgErr)
//
//	// In a caller, check the error kind:
//	if errs.IsInvalidHandle(err) {
//	    panic(err) // programmer error
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing driver-specific codes.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // no rows where one was required
	ErrKindConnectionFailed         // cannot reach the backend
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindQueryFailed              // SQL syntax or runtime execution error
	ErrKindInvalidInput             // bad arguments from the caller
	ErrKindPermissionDenied         // access denied / auth failure
	ErrKindConflict                 // unique / foreign key / check violation
	ErrKindInvalidHandle            // nil handle passed to a helper
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindConflict:
		return "conflict"
	case ErrKindInvalidHandle:
		return "invalid_handle"
	default:
		return "unknown"
	}
}

// Error is the single error type produced by rowx itself and by the
// driver classifiers.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a SQL execution failure.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// IsConflict reports whether err is a constraint violation.
func IsConflict(err error) bool {
	return KindOf(err) == ErrKindConflict
}

// IsInvalidHandle reports whether err was raised because a helper was
// called without a database handle.
func IsInvalidHandle(err error) bool {
	return KindOf(err) == ErrKindInvalidHandle
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
