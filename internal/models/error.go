package models

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every domain failure surfaced by the auth flows is one of these.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrConflict          = errors.New("resource already exists")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrAccountLocked     = errors.New("account is locked")
	ErrTokenInvalid      = errors.New("invalid or expired token")
	ErrBadRequest        = errors.New("bad request")
	ErrUnexpected        = errors.New("unexpected error")

	// ErrStoreUnavailable is the credential store's generic storage failure
	ErrStoreUnavailable = errors.New("store unavailable")
)

// AuthError is a tagged failure carrying its kind, HTTP-equivalent status and a user-facing message
type AuthError struct {
	Kind    error
	Status  int
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches against the error kind so errors.Is(err, ErrAccountLocked) works
func (e *AuthError) Is(target error) bool {
	return e.Kind == target
}

// NewAuthError builds a domain failure
func NewAuthError(kind error, status int, message string) *AuthError {
	return &AuthError{Kind: kind, Status: status, Message: message}
}

func NotFound(message string) *AuthError {
	return NewAuthError(ErrNotFound, http.StatusNotFound, message)
}

func Conflict(message string) *AuthError {
	return NewAuthError(ErrConflict, http.StatusBadRequest, message)
}

func BadRequest(message string) *AuthError {
	return NewAuthError(ErrBadRequest, http.StatusBadRequest, message)
}

// WrapUnexpected translates a lower-layer failure into "Something went wrong while <verb>".
// Errors that are already an *AuthError pass through unchanged.
func WrapUnexpected(verb string, err error) error {
	if err == nil {
		return nil
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	return &AuthError{
		Kind:    ErrUnexpected,
		Status:  http.StatusInternalServerError,
		Message: "Something went wrong while " + verb,
		Err:     err,
	}
}

// StatusOf returns the status carried by err, or 500
func StatusOf(err error) int {
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.Status != 0 {
		return authErr.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the user-facing message carried by err
func MessageOf(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	return "Internal server error"
}
