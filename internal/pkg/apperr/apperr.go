// Package apperr defines the error taxonomy shared by the engine packages.
// Every rejection returned to the command layer carries a Kind so callers can
// decide how to reply without inspecting package-specific sentinels.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a recoverable engine error.
type Kind string

const (
	KindValidation Kind = "validation" // rejected before any mutation
	KindConflict   Kind = "conflict"   // existing state prevents the operation
	KindCooldown   Kind = "cooldown"   // action repeated too early
	KindNotFound   Kind = "not_found"  // encounter, item or player missing
)

// Kind sentinels. Every *Error unwraps to the sentinel of its kind.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict error")
	ErrCooldown   = errors.New("cooldown error")
	ErrNotFound   = errors.New("not found error")
)

// Error is a classified engine error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Remaining is set for cooldown errors.
	Remaining time.Duration
}

func (e *Error) Error() string {
	if e.Kind == KindCooldown && e.Remaining > 0 {
		return fmt.Sprintf("%s (retry in %s)", e.Message, e.Remaining.Round(time.Second))
	}
	return e.Message
}

// Unwrap returns the sentinel of the error's kind.
func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindValidation:
		return ErrValidation
	case KindConflict:
		return ErrConflict
	case KindCooldown:
		return ErrCooldown
	case KindNotFound:
		return ErrNotFound
	}
	return nil
}

// Validation creates a validation error.
func Validation(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

// Conflict creates a conflict error.
func Conflict(code, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

// NotFound creates a not-found error.
func NotFound(code, msg string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: msg}
}

// Cooldown creates a cooldown error for an action with the remaining wait.
func Cooldown(action string, remaining time.Duration) *Error {
	return &Error{
		Kind:      KindCooldown,
		Code:      action + "_cooldown",
		Message:   action + " is on cooldown",
		Remaining: remaining,
	}
}

// KindOf returns the kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is classified as k.
func IsKind(err error, k Kind) bool {
	return k != "" && KindOf(err) == k
}

// RemainingOf returns the remaining cooldown carried by err, if any.
func RemainingOf(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.Remaining
	}
	return 0
}
