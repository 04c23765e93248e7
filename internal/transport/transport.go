// Package transport defines the network error class shared by every outbound
// call this module makes, so token endpoint POSTs and JWKS fetches fail the
// same way and one retry policy can match both.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrNetwork is the sentinel for transport-layer failures, including
// handshake and request timeouts. Recoverable by the caller's retry policy;
// nothing in this module retries internally.
var ErrNetwork = errors.New("endpoint unreachable")

// Error wraps a transport failure with the concrete error ErrNetwork and
// remembers whether it was a timeout.
type Error struct {
	Details error
	Timeout bool
}

func (e *Error) Is(target error) bool {
	return target == ErrNetwork
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", ErrNetwork, e.Details)
}

func (e *Error) Unwrap() error {
	return e.Details
}

// New wraps err as a transport Error, deriving the timeout flag from its
// cause.
func New(err error) *Error {
	return &Error{Details: err, Timeout: IsTimeoutCause(err)}
}

// IsTimeout reports whether err is a transport failure caused by a timeout.
func IsTimeout(err error) bool {
	var transportErr *Error
	return errors.As(err, &transportErr) && transportErr.Timeout
}

// IsTimeoutCause reports whether err stems from a deadline or I/O timeout.
func IsTimeoutCause(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
