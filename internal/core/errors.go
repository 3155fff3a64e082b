package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyCategory = errors.New("empty category")
	ErrEmptyName     = errors.New("empty category name")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrNoteTooLong   = errors.New("note too long")
)

// ValidationError reports malformed or out-of-range input to a mutation.
// It is returned before any state changes.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := e.Field + ": "
	if e.Err != nil {
		msg += e.Err.Error()
	}
	if e.Reason != "" {
		if e.Err != nil {
			msg += " (" + e.Reason + ")"
		} else {
			msg += e.Reason
		}
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NotFoundError reports an operation on an identifier that does not exist.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is, or wraps, a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
