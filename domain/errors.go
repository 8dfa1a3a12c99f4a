package domain

import (
	"errors"
)

// Error kinds. Services return *Error values wrapping one of these so that
// transports can classify them with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream failure")
)

// Error is a classified error with a message that is safe to show clients.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}

	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}

	return []error{e.Kind}
}

func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func WrapError(kind error, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) *Error     { return NewError(ErrNotFound, message) }
func Validation(message string) *Error   { return NewError(ErrValidation, message) }
func Unauthorized(message string) *Error { return NewError(ErrUnauthorized, message) }
func Forbidden(message string) *Error    { return NewError(ErrForbidden, message) }
func Conflict(message string) *Error     { return NewError(ErrConflict, message) }

// Message returns the client-facing message of a classified error, or def.
func Message(err error, def string) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}

	return def
}
