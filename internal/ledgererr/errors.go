// Package ledgererr defines the error kinds raised by the splitter and
// settlement engines.
package ledgererr

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per kind. Match with errors.Is.
var (
	ErrNotFound      = errors.New("ledger: not found")
	ErrMembership    = errors.New("ledger: not a group member")
	ErrShareMismatch = errors.New("ledger: share mismatch")
	ErrAccessDenied  = errors.New("ledger: access denied")
	ErrStorage       = errors.New("ledger: storage failure")
)

// Error carries the kind of a failure plus the operation and entity involved.
type Error struct {
	// Kind is one of the sentinel errors above.
	Kind error
	// Op is the engine operation that failed, e.g. "split".
	Op string
	// Msg is a human readable detail.
	Msg string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NotFound reports a required entity that does not exist.
func NotFound(op, entity, id string) error {
	return newError(ErrNotFound, op, "%s %s", entity, id)
}

// Membership reports a payer or participant outside the group.
func Membership(op, format string, args ...any) error {
	return newError(ErrMembership, op, format, args...)
}

// ShareMismatch reports shares that do not add up, or an empty target set.
func ShareMismatch(op, format string, args ...any) error {
	return newError(ErrShareMismatch, op, format, args...)
}

// AccessDenied reports a requester without visibility.
func AccessDenied(op, format string, args ...any) error {
	return newError(ErrAccessDenied, op, format, args...)
}

// Storage wraps a persistence failure.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	return &Error{Kind: ErrStorage, Op: op, Err: err}
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsMembership returns true if the error is a membership error.
func IsMembership(err error) bool { return errors.Is(err, ErrMembership) }

// IsShareMismatch returns true if the error is a share mismatch.
func IsShareMismatch(err error) bool { return errors.Is(err, ErrShareMismatch) }

// IsAccessDenied returns true if the error is an access denial.
func IsAccessDenied(err error) bool { return errors.Is(err, ErrAccessDenied) }

// IsStorage returns true if the error is a storage failure.
func IsStorage(err error) bool { return errors.Is(err, ErrStorage) }
