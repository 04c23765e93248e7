package truststore

import (
	"fmt"
	"os"
)

// Option is how sources for Load are set up.
// Options return errors to enable validation during construction.
type Option func(*config) error

type config struct {
	certPEM     []byte
	keyPEM      []byte
	trustPEM    []byte
	systemRoots bool
}

// WithClientCertificateFile reads the client certificate chain from a
// PEM-encoded file.
func WithClientCertificateFile(path string) Option {
	return func(c *config) error {
		pemBytes, err := os.ReadFile(path)
		if err != nil {
			return &configurationError{details: fmt.Errorf("could not read client certificate file: %w", err)}
		}
		c.certPEM = pemBytes
		return nil
	}
}

// WithClientCertificatePEM sets the client certificate chain from
// PEM-encoded bytes, for sources that are not files (environment variables,
// secret stores).
func WithClientCertificatePEM(pemBytes []byte) Option {
	return func(c *config) error {
		if len(pemBytes) == 0 {
			return &configurationError{details: fmt.Errorf("client certificate PEM cannot be empty")}
		}
		c.certPEM = pemBytes
		return nil
	}
}

// WithPrivateKeyFile reads the private key from a PEM-encoded file.
func WithPrivateKeyFile(path string) Option {
	return func(c *config) error {
		pemBytes, err := os.ReadFile(path)
		if err != nil {
			return &configurationError{details: fmt.Errorf("could not read private key file: %w", err)}
		}
		c.keyPEM = pemBytes
		return nil
	}
}

// WithPrivateKeyPEM sets the private key from PEM-encoded bytes.
func WithPrivateKeyPEM(pemBytes []byte) Option {
	return func(c *config) error {
		if len(pemBytes) == 0 {
			return &configurationError{details: fmt.Errorf("private key PEM cannot be empty")}
		}
		c.keyPEM = pemBytes
		return nil
	}
}

// WithTrustAnchorsFile reads the trusted root certificates from a
// PEM-encoded file.
func WithTrustAnchorsFile(path string) Option {
	return func(c *config) error {
		pemBytes, err := os.ReadFile(path)
		if err != nil {
			return &configurationError{details: fmt.Errorf("could not read trust anchors file: %w", err)}
		}
		c.trustPEM = pemBytes
		return nil
	}
}

// WithTrustAnchorsPEM sets the trusted root certificates from PEM-encoded
// bytes.
func WithTrustAnchorsPEM(pemBytes []byte) Option {
	return func(c *config) error {
		if len(pemBytes) == 0 {
			return &configurationError{details: fmt.Errorf("trust anchors PEM cannot be empty")}
		}
		c.trustPEM = pemBytes
		return nil
	}
}

// WithSystemRoots explicitly allows server verification to fall back to the
// system default roots when no trust anchors are configured. Without this
// option Load fails when trust anchors are missing.
func WithSystemRoots() Option {
	return func(c *config) error {
		c.systemRoots = true
		return nil
	}
}
