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

// PersistenceError wraps a failure of the underlying data store so the API
// layer can report it as a service availability issue instead of a plain
// server error.
type PersistenceError struct {
	Err error
	Msg string
}

func NewPersistenceError(err error, msg string) error {
	return &PersistenceError{Err: err, Msg: msg}
}

func (err PersistenceError) Error() string {
	if err.Err == nil {
		return err.Msg
	}
	return err.Msg + ": " + err.Err.Error()
}

func (err PersistenceError) Unwrap() error { return err.Err }

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
