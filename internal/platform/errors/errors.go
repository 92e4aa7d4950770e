package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrUploadInProgress  = errors.New("an upload is already in progress")
	ErrSessionActive     = errors.New("a query session is already active")
	ErrNotReady          = errors.New("no document has been uploaded yet")
	ErrPeerClosed        = errors.New("connection closed by peer")
)

// ServiceError is a non-2xx or malformed response from a backend endpoint.
type ServiceError struct {
	StatusCode int
	Detail     string
}

func (e *ServiceError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("service error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("service error (status %d): %s", e.StatusCode, e.Detail)
}

// DetailOf returns the backend detail string carried by err, if any.
func DetailOf(err error) string {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Detail
	}
	return ""
}
