package mtls

import (
	"errors"
	"time"
)

// Option is how options for the Builder are set up.
// Options return errors to enable validation during construction.
type Option func(*Builder) error

// WithHandshakeTimeout sets the TLS handshake bound applied to every
// connection built from this Builder. If not specified, defaults to 2
// seconds.
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(b *Builder) error {
		if timeout <= 0 {
			return errors.New("handshake timeout must be positive")
		}
		b.handshakeTimeout = timeout
		return nil
	}
}

// WithRequestTimeout sets the overall bound for a single outbound request,
// handshake included. If not specified, defaults to 30 seconds.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(b *Builder) error {
		if timeout <= 0 {
			return errors.New("request timeout must be positive")
		}
		b.requestTimeout = timeout
		return nil
	}
}

// WithoutHostnameVerification disables server hostname verification while
// keeping chain-of-trust verification against the configured trust anchors.
// Only intended for servers reached under a name or address their
// certificate does not cover.
func WithoutHostnameVerification() Option {
	return func(b *Builder) error {
		b.skipVerify = true
		return nil
	}
}
