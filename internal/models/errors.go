package models

import (
	"errors"
	"fmt"
)

// ValidationError reports an invalid input rejected before any I/O. Range
// checks fill Value/Min/Max; other checks set Reason.
type ValidationError struct {
	Field  string
	Value  float64
	Min    float64
	Max    float64
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return e.Field + ": " + e.Reason
	}
	return fmt.Sprintf("%s %g out of range [%g, %g]", e.Field, e.Value, e.Min, e.Max)
}

// NotFoundError reports an unknown named resource (e.g. a profile).
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

type ConnectionErrorKind string

const (
	KindBadCredentials    ConnectionErrorKind = "bad-credentials"
	KindServerUnavailable ConnectionErrorKind = "server-unavailable"
	KindProtocolMismatch  ConnectionErrorKind = "protocol-mismatch"
	KindNotAuthorized     ConnectionErrorKind = "not-authorized"
	KindGeneric           ConnectionErrorKind = "generic-failure"
)

// ConnectionError is a classified broker session failure.
type ConnectionError struct {
	Kind ConnectionErrorKind
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return "connection: " + string(e.Kind)
	}
	return fmt.Sprintf("connection: %s: %v", e.Kind, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Retryable is false only for rejected credentials.
func (e *ConnectionError) Retryable() bool { return e.Kind != KindBadCredentials }

// ErrEmptyCredentials is returned by Connect when username or password is blank.
var ErrEmptyCredentials = errors.New("username and password are required")

// DecodeError wraps a malformed inbound payload.
type DecodeError struct {
	Topic string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode payload on %q: %v", e.Topic, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed durable write or read.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
