// Package apperrors holds the failure taxonomy shared by the server and the kiosk.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// KindValidation is missing or malformed input, caught before any request is sent.
	KindValidation Kind = "VALIDATION"

	// KindRetrieval is an unreachable or failing backing store.
	KindRetrieval Kind = "RETRIEVAL"

	// KindCheckInFailure is a status transition rejected by the system of record.
	KindCheckInFailure Kind = "CHECKIN_FAILURE"

	// KindStale marks a response for a superseded request. Never shown to users.
	KindStale Kind = "STALE"
)

// Error is an application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NewRetrievalError(message string, err error) *Error {
	return &Error{Kind: KindRetrieval, Message: message, Err: err}
}

// NewCheckInFailure carries the reason given by the system of record, if any.
func NewCheckInFailure(reason string, err error) *Error {
	return &Error{Kind: KindCheckInFailure, Message: reason, Err: err}
}

// ErrStale is returned when a response arrives for a superseded request.
var ErrStale = &Error{Kind: KindStale, Message: "response superseded"}

// KindOf reports the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }

func IsRetrieval(err error) bool { return KindOf(err) == KindRetrieval }

func IsCheckInFailure(err error) bool { return KindOf(err) == KindCheckInFailure }

func IsStale(err error) bool { return KindOf(err) == KindStale }

// Reason returns the user-facing message of err, or fallback when none is known.
func Reason(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
