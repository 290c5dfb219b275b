package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the single error shape the API exposes. Code is a stable machine
// identifier, Status the HTTP code it maps to, and Err an optional wrapped
// cause that never leaves the process.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code, so a Clone of a sentinel still satisfies
// errors.Is against the original.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New builds an Error with no wrapped cause.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap builds an Error around an underlying cause.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Sentinel errors shared across services.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// Allocation errors.
	ErrCapacityExceeded = New("CAPACITY_EXCEEDED", http.StatusConflict, "no seats or supervision slots left")
	ErrAlreadyAssigned  = New("ALREADY_ASSIGNED", http.StatusConflict, "student already has an assignment")
	ErrNotApproved      = New("NOT_APPROVED", http.StatusPreconditionFailed, "topic is not approved")
	ErrHasDependents    = New("HAS_DEPENDENTS", http.StatusConflict, "record has dependent entities")

	// Jury and defense errors.
	ErrMemberUnavailable = New("MEMBER_UNAVAILABLE", http.StatusConflict, "jury member already reserved")
	ErrJuryLocked        = New("JURY_LOCKED", http.StatusConflict, "jury has active defense sessions")
	ErrAllNotesRequired  = New("ALL_NOTES_REQUIRED", http.StatusPreconditionFailed, "all four role scores must be submitted")
	ErrDossierIncomplete = New("DOSSIER_INCOMPLETE", http.StatusPreconditionFailed, "defense dossier is not complete")
)

// FromError coerces any error into an *Error. Unknown errors are hidden
// behind ErrInternal so internals never leak to clients.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone copies a sentinel so a call site can override its message without
// mutating the shared variable.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
