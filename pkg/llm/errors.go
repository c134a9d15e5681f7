package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrServiceUnavailable is returned when no provider client was configured.
var ErrServiceUnavailable = errors.New("inference service unavailable")

// ErrorKind separates failures worth retrying from those that are not.
type ErrorKind int

const (
	Permanent ErrorKind = iota
	Transient
)

func (k ErrorKind) String() string {
	if k == Transient {
		return "transient"
	}
	return "permanent"
}

// ServiceError is a classified failure from an inference backend.
type ServiceError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s service error (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s service error: %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewTransient wraps a retryable failure.
func NewTransient(status int, msg string, err error) *ServiceError {
	return &ServiceError{Kind: Transient, Status: status, Message: msg, Err: err}
}

// NewPermanent wraps a failure that retrying will not fix.
func NewPermanent(status int, msg string, err error) *ServiceError {
	return &ServiceError{Kind: Permanent, Status: status, Message: msg, Err: err}
}

// IsTransient reports whether err belongs to the overloaded/temporarily
// unavailable class. Typed errors are trusted; otherwise the message is
// inspected. Anything unrecognized is permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind == Transient
	}
	if errors.Is(err, ErrServiceUnavailable) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "temporarily unavailable") ||
		strings.Contains(msg, "service unavailable") ||
		strings.Contains(msg, "try again later")
}

// StatusIsTransient classifies an HTTP status returned by a backend.
func StatusIsTransient(status int) bool {
	switch status {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}
