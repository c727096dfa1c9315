package service

import (
	"errors"
	"net/http"
	"time"
)

// Kind classifies an engine failure. Kind implements error so callers can
// branch with errors.Is(err, service.KindEventFull).
type Kind string

const (
	KindInvalidInput          Kind = "INVALID_INPUT"
	KindValidation            Kind = "VALIDATION_ERROR"
	KindDuplicateEmail        Kind = "DUPLICATE_EMAIL"
	KindEventNotFound         Kind = "EVENT_NOT_FOUND"
	KindUserNotFound          Kind = "USER_NOT_FOUND"
	KindRegistrationNotFound  Kind = "REGISTRATION_NOT_FOUND"
	KindPastEventRegistration Kind = "PAST_EVENT_REGISTRATION"
	KindDuplicateRegistration Kind = "DUPLICATE_REGISTRATION"
	KindEventFull             Kind = "EVENT_FULL"
	KindCancellationTooLate   Kind = "CANCELLATION_TOO_LATE"
)

func (k Kind) Error() string { return string(k) }

// Status is the HTTP-style severity code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindInvalidInput, KindValidation:
		return http.StatusBadRequest
	case KindEventNotFound, KindUserNotFound, KindRegistrationNotFound:
		return http.StatusNotFound
	case KindDuplicateRegistration, KindDuplicateEmail:
		return http.StatusConflict
	case KindEventFull, KindPastEventRegistration, KindCancellationTooLate:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error is the failure variant of every engine operation.
// Detail holds one of the *Detail types below, or nil.
type Error struct {
	Kind    Kind
	Message string
	Detail  any
}

func (e *Error) Error() string { return e.Message }

// Is reports whether target is the error's Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// Status is the HTTP-style severity code of the failure.
func (e *Error) Status() int { return e.Kind.Status() }

// AsError unwraps err to an *Error.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func newError(kind Kind, msg string, detail any) *Error {
	return &Error{Kind: kind, Message: msg, Detail: detail}
}

// ValidationDetail lists every violated creation rule.
type ValidationDetail struct {
	Errors []string `json:"errors"`
}

// DuplicateDetail points at the registration that already exists.
type DuplicateDetail struct {
	RegistrationID int64     `json:"registration_id"`
	RegisteredAt   time.Time `json:"registered_at"`
}

// CapacityDetail describes a full event. There is no waitlist.
type CapacityDetail struct {
	Capacity             int  `json:"event_capacity"`
	CurrentRegistrations int  `json:"current_registrations"`
	WaitlistAvailable    bool `json:"waitlist_available"`
}

// PastEventDetail describes a registration attempt inside the buffer window.
type PastEventDetail struct {
	EventDate   time.Time `json:"event_date"`
	CurrentTime time.Time `json:"current_time"`
}

// DeadlineDetail describes a cancellation attempt after the deadline.
type DeadlineDetail struct {
	EventDate            time.Time `json:"event_date"`
	CurrentTime          time.Time `json:"current_time"`
	CancellationDeadline time.Time `json:"cancellation_deadline"`
}
