package booking

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a booking could not be placed.
type ErrorKind string

const (
	ValidationFailed  ErrorKind = "validation_failed"
	Unauthenticated   ErrorKind = "unauthenticated"
	ConnectionError   ErrorKind = "connection_error"
	ServerRejected    ErrorKind = "server_rejected"
	MalformedResponse ErrorKind = "malformed_response"
)

// Failure is the error type of the booking flow. Reason is the text shown to the user.
type Failure struct {
	Kind   ErrorKind
	Reason string
	Status int // HTTP status, when one was received
	Err    error
}

func (f *Failure) Error() string { return f.Reason }

func (f *Failure) Unwrap() error { return f.Err }

func Fail(kind ErrorKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func Invalid(reason string) *Failure {
	return &Failure{Kind: ValidationFailed, Reason: reason}
}

// KindOf reports the ErrorKind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}

func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
