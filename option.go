package oidcmtls

import (
	"errors"
	"time"

	"github.com/curityio/go-oidc-mtls/mtls"
)

// Option is how options for the Client are set up.
type Option func(*clientConfig) error

type clientConfig struct {
	mtlsOptions      []mtls.Option
	keyCacheTTL      time.Duration
	allowedClockSkew time.Duration

	logger  Logger
	tracer  Tracer
	metrics Metrics
}

// WithMTLSOptions forwards options to the TLS context builder, for example
// mtls.WithHandshakeTimeout or mtls.WithoutHostnameVerification.
func WithMTLSOptions(opts ...mtls.Option) Option {
	return func(c *clientConfig) error {
		c.mtlsOptions = append(c.mtlsOptions, opts...)
		return nil
	}
}

// WithKeyCacheTTL sets how long fetched verification keys stay fresh.
// If not specified, the JWKS provider's default of 15 minutes applies.
func WithKeyCacheTTL(ttl time.Duration) Option {
	return func(c *clientConfig) error {
		if ttl < 0 {
			return errors.New("key cache TTL cannot be negative")
		}
		c.keyCacheTTL = ttl
		return nil
	}
}

// WithAllowedClockSkew sets the tolerance applied to the ID token timestamp
// checks. If not specified, no tolerance is applied.
func WithAllowedClockSkew(skew time.Duration) Option {
	return func(c *clientConfig) error {
		if skew < 0 {
			return errors.New("clock skew cannot be negative")
		}
		c.allowedClockSkew = skew
		return nil
	}
}

// WithLogger sets the logger. If not specified, DefaultLogger is used.
func WithLogger(logger Logger) Option {
	return func(c *clientConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithTracer sets the tracer. If not specified, NoopTracer is used.
func WithTracer(tracer Tracer) Option {
	return func(c *clientConfig) error {
		if tracer == nil {
			return errors.New("tracer cannot be nil")
		}
		c.tracer = tracer
		return nil
	}
}

// WithMetrics sets the metrics sink. If not specified, NoopMetrics is used.
func WithMetrics(metrics Metrics) Option {
	return func(c *clientConfig) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		c.metrics = metrics
		return nil
	}
}
