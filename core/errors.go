package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// ErrorKind classifies domain errors; the transport layer maps each kind to a status code.
type ErrorKind int

const (
	KindInvalid ErrorKind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindUnavailable
)

// Error is a domain error whose message is safe to return to clients.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (err *Error) Error() string { return err.Msg }

func NewError(kind ErrorKind, msg string) error { return &Error{Kind: kind, Msg: msg} }

func Invalid(msg string) error      { return NewError(KindInvalid, msg) }
func Unauthorized(msg string) error { return NewError(KindUnauthorized, msg) }
func Forbidden(msg string) error    { return NewError(KindForbidden, msg) }
func NotFound(msg string) error     { return NewError(KindNotFound, msg) }
func Conflict(msg string) error     { return NewError(KindConflict, msg) }
func Unavailable(msg string) error  { return NewError(KindUnavailable, msg) }

// IsKind reports whether the cause of err is a core.Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := errors.Cause(err).(*Error)
	return ok && e.Kind == kind
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
