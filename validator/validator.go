// Package validator verifies ID tokens against a JWKS-backed key provider
// and applies the OIDC claim validation rules for one client registration.
//
// Verification is restricted to asymmetric signature algorithms. Tokens
// signed with a MAC-based algorithm are rejected outright, mirroring the
// behavior of decoding against a custom trust store.
package validator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// SignatureAlgorithm is a signature algorithm.
type SignatureAlgorithm = jwa.SignatureAlgorithm

var allowedSigningAlgorithms = map[jwa.SignatureAlgorithm]bool{
	jwa.RS256: true,
	jwa.RS384: true,
	jwa.RS512: true,
	jwa.ES256: true,
	jwa.ES384: true,
	jwa.ES512: true,
	jwa.PS256: true,
	jwa.PS384: true,
	jwa.PS512: true,
	jwa.EdDSA: true,
}

var macSigningAlgorithms = map[jwa.SignatureAlgorithm]bool{
	jwa.HS256: true,
	jwa.HS384: true,
	jwa.HS512: true,
}

// KeyProvider resolves a verification key by its key ID, typically a
// jwks.CachingProvider.
type KeyProvider interface {
	Key(ctx context.Context, keyID string) (jwk.Key, error)
}

// Validator verifies and validates ID tokens for one client registration.
type Validator struct {
	keys             KeyProvider   // Required.
	expectedIssuer   string        // Required.
	expectedAudience string        // Required.
	allowedClockSkew time.Duration // Optional.
}

// New sets up a new Validator with the supplied options.
//
// Required options:
//   - WithKeyProvider: resolves verification keys by key ID
//   - WithIssuer: expected iss claim
//   - WithAudience: expected aud member (the client ID)
//
// Optional options:
//   - WithAllowedClockSkew: tolerance for the timestamp checks
func New(opts ...Option) (*Validator, error) {
	v := &Validator{}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if v.keys == nil {
		return nil, errors.New("key provider is required but was nil")
	}
	if v.expectedIssuer == "" {
		return nil, errors.New("issuer is required but was empty")
	}
	if v.expectedAudience == "" {
		return nil, errors.New("audience is required but was empty")
	}

	return v, nil
}

// ValidateToken verifies the token signature and applies the OIDC claim
// checks in order: issuer, audience, time window, nonce. The first failing
// check short-circuits with a *ValidationError naming it.
func (v *Validator) ValidateToken(ctx context.Context, tokenString string, opts ...ValidateOption) (*ValidatedClaims, error) {
	var callCfg validateConfig
	for _, opt := range opts {
		opt(&callCfg)
	}

	keyID, algorithm, err := parseHeader(tokenString)
	if err != nil {
		return nil, err
	}

	key, err := v.keys.Key(ctx, keyID)
	if err != nil {
		return nil, fmt.Errorf("could not resolve signing key: %w", err)
	}

	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(algorithm, key),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, &signatureError{details: err}
	}

	if err := v.validateClaims(token, callCfg.expectedNonce); err != nil {
		return nil, err
	}

	return &ValidatedClaims{
		RegisteredClaims: RegisteredClaims{
			Issuer:    token.Issuer(),
			Subject:   token.Subject(),
			Audience:  token.Audience(),
			ID:        token.JwtID(),
			Expiry:    timeToUnix(token.Expiration()),
			NotBefore: timeToUnix(token.NotBefore()),
			IssuedAt:  timeToUnix(token.IssuedAt()),
		},
		CustomClaims: token.PrivateClaims(),
	}, nil
}

// parseHeader extracts the key ID and algorithm from the protected header
// and enforces the asymmetric-only restriction before any key is resolved.
func parseHeader(tokenString string) (string, jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(tokenString)
	if err != nil {
		return "", "", &signatureError{details: fmt.Errorf("could not parse the token: %w", err)}
	}

	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", "", &signatureError{details: errors.New("token carries no signature")}
	}
	headers := signatures[0].ProtectedHeaders()

	algorithm := headers.Algorithm()
	if algorithm == "" {
		return "", "", &signatureError{details: errors.New("token header carries no signature algorithm")}
	}

	if macSigningAlgorithms[algorithm] {
		return "", "", fmt.Errorf("%w: %q is MAC-based and cannot be verified against a custom trust store", ErrUnsupportedAlgorithm, algorithm)
	}
	if !allowedSigningAlgorithms[algorithm] {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}

	keyID := headers.KeyID()
	if keyID == "" {
		return "", "", &signatureError{details: errors.New("token header is missing the key ID")}
	}

	return keyID, algorithm, nil
}

// validateClaims applies the semantic checks in their documented order.
func (v *Validator) validateClaims(token jwt.Token, expectedNonce string) error {
	if token.Issuer() != v.expectedIssuer {
		return &ValidationError{
			Check:   IssuerMismatch,
			details: fmt.Sprintf("expected issuer %q but token has %q", v.expectedIssuer, token.Issuer()),
		}
	}

	if !containsAudience(token.Audience(), v.expectedAudience) {
		return &ValidationError{
			Check:   AudienceMismatch,
			details: fmt.Sprintf("token audience %v does not contain %q", token.Audience(), v.expectedAudience),
		}
	}

	now := time.Now()
	skew := v.allowedClockSkew

	if expiry := token.Expiration(); !expiry.IsZero() && now.After(expiry.Add(skew)) {
		return &ValidationError{
			Check:   Expired,
			details: fmt.Sprintf("token expired at %s", expiry.Format(time.RFC3339)),
		}
	}
	if notBefore := token.NotBefore(); !notBefore.IsZero() && now.Before(notBefore.Add(-skew)) {
		return &ValidationError{
			Check:   NotYetValid,
			details: fmt.Sprintf("token not valid before %s", notBefore.Format(time.RFC3339)),
		}
	}
	if issuedAt := token.IssuedAt(); !issuedAt.IsZero() && now.Before(issuedAt.Add(-skew)) {
		return &ValidationError{
			Check:   NotYetValid,
			details: fmt.Sprintf("token issued in the future at %s", issuedAt.Format(time.RFC3339)),
		}
	}

	if expectedNonce != "" {
		nonce, ok := token.Get("nonce")
		if !ok {
			return &ValidationError{
				Check:   NonceMismatch,
				details: "a nonce was sent with the authorization request but the token carries none",
			}
		}
		if nonceString, _ := nonce.(string); nonceString != expectedNonce {
			return &ValidationError{
				Check:   NonceMismatch,
				details: "token nonce does not match the nonce sent with the authorization request",
			}
		}
	}

	return nil
}

func containsAudience(audience []string, expected string) bool {
	for _, aud := range audience {
		if aud == expected {
			return true
		}
	}
	return false
}

func timeToUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
