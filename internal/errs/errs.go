// Package errs defines the error categories the dispatch pipeline reports
// to users: validation, scope, not-found, unknown-action and classifier
// failures. Anything else is treated as an internal error.
package errs

import (
	"errors"
	"fmt"
)

// ValidationError signals a missing or malformed mandatory field. Its
// message is shown to the user verbatim.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validation builds a ValidationError.
func Validation(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ScopeError signals that a scope required context that was absent or that
// named users could not be resolved. Shown to the user verbatim.
type ScopeError struct {
	Msg string
}

func (e *ScopeError) Error() string { return e.Msg }

// Scope builds a ScopeError.
func Scope(format string, args ...interface{}) error {
	return &ScopeError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError signals an operation referencing a nonexistent record.
type NotFoundError struct {
	Kind string // "task", "item", "event", "user", "group"
}

func (e *NotFoundError) Error() string { return e.Kind + " not found" }

// NotFound builds a NotFoundError for the given record kind.
func NotFound(kind string) error {
	return &NotFoundError{Kind: kind}
}

// UnknownActionError signals a classified action or operation outside the
// known set. Surfaced as a generic failure.
type UnknownActionError struct {
	Action    string
	Operation string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action %q operation %q", e.Action, e.Operation)
}

// ClassifierError signals that the intent classifier failed or returned
// unparseable output. Surfaced as "could not understand".
type ClassifierError struct {
	Err error
}

func (e *ClassifierError) Error() string { return "classify message: " + e.Err.Error() }
func (e *ClassifierError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
