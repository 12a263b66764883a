package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrEmptyOperation is returned when a call names no operation.
var ErrEmptyOperation = errors.New("operation name is empty")

// ErrUnknownOperation is returned when the binding does not know the requested operation.
var ErrUnknownOperation = errors.New("unknown operation")

// ErrInvalidArguments is returned when arguments cannot be rendered into a request.
var ErrInvalidArguments = errors.New("invalid arguments")

// ErrPanic wraps a panic recovered while a call was in flight.
var ErrPanic = errors.New("panic during call")

// BuildError reports that the binding rejected an operation or its arguments
// while building the transport request. No transport interaction happened.
type BuildError struct {
	Operation string
	Err       error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build request for %q: %v", e.Operation, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// TransportError is a transport failure that carries no response
// (connection reset, DNS failure, timeout).
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was caused by a deadline.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// StatusError is the cause attached to a transport failure that still carries a
// response. The response is interpreted, so callers normally never see it.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return "http status " + e.Status
	}
	return fmt.Sprintf("http status %d", e.StatusCode)
}

// Fault is an application-level error embedded in a delivered response.
type Fault struct {
	Code   string `json:"code"`
	String string `json:"string"`
	Actor  string `json:"actor,omitempty"`
	Detail any    `json:"detail,omitempty"`
}

func (f *Fault) Error() string {
	if f.Code == "" {
		return f.String
	}
	return f.Code + ": " + f.String
}

// DecodeError reports a response that could not be interpreted and is not a Fault.
type DecodeError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("interpret response for %q (status %d): %v", e.Operation, e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
