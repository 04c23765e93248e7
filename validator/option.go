package validator

import (
	"errors"
	"time"

	"github.com/curityio/go-oidc-mtls/registration"
)

// Option is how options for the Validator are set up.
type Option func(*Validator) error

// WithKeyProvider sets the provider that resolves verification keys by key
// ID, typically a jwks.CachingProvider. This is a required option.
func WithKeyProvider(keys KeyProvider) Option {
	return func(v *Validator) error {
		if keys == nil {
			return errors.New("key provider cannot be nil")
		}
		v.keys = keys
		return nil
	}
}

// WithIssuer sets the issuer the token's iss claim must equal exactly. This
// is a required option unless WithRegistration is used.
func WithIssuer(issuer string) Option {
	return func(v *Validator) error {
		if issuer == "" {
			return errors.New("issuer cannot be empty")
		}
		v.expectedIssuer = issuer
		return nil
	}
}

// WithAudience sets the value the token's aud claim must contain, normally
// the client ID. This is a required option unless WithRegistration is used.
func WithAudience(audience string) Option {
	return func(v *Validator) error {
		if audience == "" {
			return errors.New("audience cannot be empty")
		}
		v.expectedAudience = audience
		return nil
	}
}

// WithRegistration sets the expected issuer and audience from a client
// registration, the audience being the registration's client ID.
func WithRegistration(reg *registration.ClientRegistration) Option {
	return func(v *Validator) error {
		if reg == nil {
			return errors.New("client registration cannot be nil")
		}
		if err := reg.Validate(); err != nil {
			return err
		}
		v.expectedIssuer = reg.Issuer
		v.expectedAudience = reg.ClientID
		return nil
	}
}

// WithAllowedClockSkew sets the tolerance applied to the exp, nbf and iat
// checks. If not specified, no tolerance is applied.
func WithAllowedClockSkew(skew time.Duration) Option {
	return func(v *Validator) error {
		if skew < 0 {
			return errors.New("clock skew cannot be negative")
		}
		v.allowedClockSkew = skew
		return nil
	}
}

// ValidateOption adjusts a single ValidateToken call.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	expectedNonce string
}

// WithExpectedNonce requires the token to carry a nonce claim equal to the
// nonce sent with the authorization request.
func WithExpectedNonce(nonce string) ValidateOption {
	return func(c *validateConfig) {
		c.expectedNonce = nonce
	}
}
