package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindPolicy
	KindAuthorization
	KindTransient
)

// Policy rejection reasons. Each maps to a distinct user-facing message.
const (
	ReasonSessionClosed          = "session_closed"
	ReasonOutsideGeofence        = "outside_geofence"
	ReasonOutsideGraceWindow     = "outside_grace_window"
	ReasonManualQuotaExceeded    = "manual_quota_exceeded"
	ReasonTimetableNonconformant = "timetable_nonconformant"
	ReasonZoneInUse              = "zone_in_use"
)

// Error carries a kind, an optional policy reason, and a message.
type Error struct {
	Kind   Kind
	Reason string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a validation error for malformed or missing input.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Policy builds a policy rejection with a machine-readable reason.
func Policy(reason, msg string) *Error {
	return &Error{Kind: KindPolicy, Reason: reason, Msg: msg}
}

// Authorization builds an error for an actor acting outside its ownership.
func Authorization(msg string) *Error {
	return &Error{Kind: KindAuthorization, Msg: msg}
}

// Transient wraps a retryable store or network failure.
func Transient(err error, msg string) *Error {
	return &Error{Kind: KindTransient, Msg: msg, Err: err}
}

// KindOf extracts the kind from any error chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ReasonOf extracts the policy reason, empty when not a policy error.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
