// Package apperr defines the error kinds shared by every domain package.
// Domain errors wrap exactly one kind so transports can map them with
// errors.Is without knowing each domain sentinel.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInternal          = errors.New("internal error")
)

var kinds = []error{
	ErrInvalidArgument,
	ErrNotFound,
	ErrUnauthorized,
	ErrForbidden,
	ErrInsufficientStock,
	ErrInternal,
}

// Error is a message tagged with one of the kinds above.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// New returns an error of the given kind carrying msg.
func New(kind error, msg string) error {
	return &Error{kind: kind, msg: msg}
}

// Newf is New with fmt formatting.
func Newf(kind error, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Internal wraps a collaborator failure. Errors that already carry a kind
// are returned with context but keep their kind.
func Internal(op string, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != ErrInternal {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, &wrapped{err: err})
}

type wrapped struct{ err error }

func (w *wrapped) Error() string { return w.err.Error() }

// Unwrap exposes both the cause and the internal kind.
func (w *wrapped) Unwrap() []error { return []error{w.err, ErrInternal} }

// Kind returns the kind carried by err, or ErrInternal when it has none.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}
