package types

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable class of a storage error. Callers branch on
// the kind, never on the message.
type Kind string

const (
	KindValidation         Kind = "VALIDATION"
	KindDuplicateID        Kind = "DUPLICATE_ID"
	KindNotFound           Kind = "NOT_FOUND"
	KindHasDependents      Kind = "HAS_DEPENDENTS"
	KindBackendUnavailable Kind = "BACKEND_UNAVAILABLE"
	KindMigrationFailed    Kind = "MIGRATION_FAILED"
	KindUnsupportedBackend Kind = "UNSUPPORTED_BACKEND"
	KindBackend            Kind = "BACKEND_ERROR"
)

// Sentinels for errors.Is comparisons. They match any *Error of the same kind.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrDuplicateID        = &Error{Kind: KindDuplicateID}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrHasDependents      = &Error{Kind: KindHasDependents}
	ErrBackendUnavailable = &Error{Kind: KindBackendUnavailable}
	ErrMigrationFailed    = &Error{Kind: KindMigrationFailed}
	ErrUnsupportedBackend = &Error{Kind: KindUnsupportedBackend}
	ErrBackend            = &Error{Kind: KindBackend}
)

// Error is a storage error carrying a Kind. Op names the failing operation
// and Err the underlying cause, if any.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError builds an *Error with a formatted message
func NewError(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an *Error that chains cause
func WrapError(kind Kind, op string, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
