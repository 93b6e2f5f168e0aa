package domain

import "errors"

// Error kinds. Handlers switch on these with errors.Is to pick a status code.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not_found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation_error")

	// Identity provider kinds.
	ErrEmailTaken         = errors.New("email_taken")
	ErrWeakPassword       = errors.New("weak_password")
	ErrInvalidFormat      = errors.New("invalid_format")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountDisabled    = errors.New("account_disabled")
	ErrRateLimited        = errors.New("rate_limited")
	ErrProvider           = errors.New("provider_error")
)

// Error carries a kind plus a message that is safe to show to the caller.
type Error struct {
	Kind    error
	Message string
	Err     error // underlying cause, never rendered
}

func NewError(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func WrapError(kind error, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.Error() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// Message returns the caller safe message for err, or fallback when err is
// not a domain error.
func Message(err error, fallback string) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return fallback
}
