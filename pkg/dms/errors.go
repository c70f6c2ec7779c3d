package dms

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes the ways a DMS operation can fail, matching the
// error kinds of the core specification exactly.
type ErrorCode string

const (
	// ErrInvalidArg covers oversize records, missing _id, and malformed RIDs
	// (a slot id at or past the page's slot count).
	ErrInvalidArg ErrorCode = "INVALID_ARG"
	// ErrNotFound covers RIDs pointing at an empty slot, a dropped record,
	// or a page outside the currently mapped set.
	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrCorruption covers eye-catcher mismatches and on-disk invariant
	// violations discovered while reading.
	ErrCorruption ErrorCode = "CORRUPTION"
	// ErrIO covers any failure surfaced by the host file adapter.
	ErrIO ErrorCode = "IO_ERROR"
	// ErrOOM covers failure to allocate small auxiliary buffers.
	ErrOOM ErrorCode = "OOM"
	// ErrInternal covers invariants violated mid-operation.
	ErrInternal ErrorCode = "INTERNAL"
)

// Error is the error type returned by every public dms operation. It
// carries a code for programmatic handling plus structured details for
// diagnostics, and wraps the underlying cause when there is one.
type Error struct {
	code    ErrorCode
	message string
	cause   error
	details map[string]any
}

// NewError builds an Error with the given code and message.
func NewError(code ErrorCode, msg string) *Error {
	return &Error{code: code, message: msg}
}

// WithCause attaches an underlying error for errors.Unwrap.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

// WithDetail attaches a key/value pair of diagnostic context.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Code returns the error's classification.
func (e *Error) Code() ErrorCode { return e.code }

// Details returns the structured context attached to this error.
func (e *Error) Details() map[string]any { return e.details }

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is(err, target) match any *Error target that carries the
// same code, e.g. errors.Is(err, NewError(ErrNotFound, "")), in addition
// to the usual identity comparison.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.code == te.code
	}
	return false
}

// Code extracts the ErrorCode from err, or ErrInternal if err does not
// carry one.
func Code(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return ErrInternal
}

func invalidArg(format string, args ...any) *Error {
	return NewError(ErrInvalidArg, fmt.Sprintf(format, args...))
}

func notFound(format string, args ...any) *Error {
	return NewError(ErrNotFound, fmt.Sprintf(format, args...))
}

func corruption(format string, args ...any) *Error {
	return NewError(ErrCorruption, fmt.Sprintf(format, args...))
}

func ioError(cause error, format string, args ...any) *Error {
	return NewError(ErrIO, fmt.Sprintf(format, args...)).WithCause(cause)
}

func internal(format string, args ...any) *Error {
	return NewError(ErrInternal, fmt.Sprintf(format, args...))
}
