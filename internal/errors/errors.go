// Package errors defines the discriminated error kinds shared by the
// evaluation engine, the store client and the HTTP server.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an error for callers that need to decide how to react
type Kind int

const (
	ErrInternal Kind = iota
	ErrNotFound
	ErrValidation
	ErrConflict
	ErrTransport
	ErrExclusivity
	ErrForbidden
)

// Codes narrowing a kind. They are part of the JSON error body.
const (
	CodeGalaLocked       = "GALA_LOCKED"
	CodeAlreadySubmitted = "ALREADY_SUBMITTED"
	CodeIncomplete       = "INCOMPLETE"
	CodeNotAllowed       = "FAVORITE_NOT_ALLOWED"
)

var kindNames = map[Kind]string{
	ErrInternal:    "internal",
	ErrNotFound:    "not_found",
	ErrValidation:  "validation",
	ErrConflict:    "conflict",
	ErrTransport:   "transport",
	ErrExclusivity: "exclusivity",
	ErrForbidden:   "forbidden",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is an application-level error with a kind for classification.
// Code optionally narrows the kind (e.g. GALA_LOCKED vs ALREADY_SUBMITTED
// for a conflict) and survives the trip over HTTP.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error // underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithCode returns a copy of e carrying code
func (e *Error) WithCode(code string) *Error {
	cp := *e
	cp.Code = code
	return &cp
}

// Retryable reports whether the failed operation may succeed if sent again
// unchanged. Only transport failures qualify.
func (e *Error) Retryable() bool {
	return e.Kind == ErrTransport
}

// Constructor functions for common error types

func NotFound(msg string) *Error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validation(msg string) *Error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func Conflict(msg string) *Error {
	return &Error{Kind: ErrConflict, Message: msg}
}

func Conflictf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func Exclusivity(msg string) *Error {
	return &Error{Kind: ErrExclusivity, Message: msg}
}

func Exclusivityf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrExclusivity, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: ErrForbidden, Message: msg}
}

// Transport wraps a network or server failure that happened while talking
// to the store.
func Transport(err error) *Error {
	return &Error{Kind: ErrTransport, Message: "store unavailable", Err: err}
}

func Transportf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrTransport, Message: fmt.Sprintf(format, args...)}
}

func Internal(err error) *Error {
	return &Error{Kind: ErrInternal, Message: "internal error", Err: err}
}

func Internalf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with additional context
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or ErrInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return ErrInternal
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	var appErr *Error
	return stderrors.As(err, &appErr) && appErr.Kind == kind
}

// CodeOf returns the code of the first *Error in err's chain
func CodeOf(err error) string {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
