package truststore

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when a trust material source is missing,
	// unreadable or malformed. Fatal at startup.
	ErrConfiguration = errors.New("trust material configuration invalid")

	// ErrCrypto is returned when the private key cannot be parsed or does
	// not match the client certificate. Fatal at startup.
	ErrCrypto = errors.New("trust material cryptographically invalid")
)

// configurationError wraps a source problem with the concrete error
// ErrConfiguration. Callers match it with errors.Is; Unwrap exposes the
// underlying detail.
type configurationError struct {
	details error
}

func (e *configurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *configurationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConfiguration, e.details)
}

func (e *configurationError) Unwrap() error {
	return e.details
}

// cryptoError wraps a key or certificate problem with the concrete error
// ErrCrypto.
type cryptoError struct {
	details error
}

func (e *cryptoError) Is(target error) bool {
	return target == ErrCrypto
}

func (e *cryptoError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCrypto, e.details)
}

func (e *cryptoError) Unwrap() error {
	return e.details
}
