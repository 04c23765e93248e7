package oidcmtls

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/curityio/go-oidc-mtls/jwks"
	"github.com/curityio/go-oidc-mtls/mtls"
	"github.com/curityio/go-oidc-mtls/registration"
	"github.com/curityio/go-oidc-mtls/tokenclient"
	"github.com/curityio/go-oidc-mtls/truststore"
	"github.com/curityio/go-oidc-mtls/validator"
)

// AuthorizationCodeGrant carries the inputs of one authorization code
// redemption.
type AuthorizationCodeGrant struct {
	// Code is the authorization code returned by the authorization endpoint.
	Code string

	// RedirectURI must match the redirect URI of the authorization request.
	// Falls back to the registration's redirect URI when empty.
	RedirectURI string

	// Nonce, when set, must match the nonce claim of the returned ID token.
	Nonce string
}

// Result is the outcome of a successful token endpoint call.
type Result struct {
	// Tokens is the raw token endpoint response.
	Tokens *tokenclient.TokenResponse

	// Claims holds the validated ID token claims. Nil when the response
	// carried no ID token, which refresh responses may legitimately omit.
	Claims *validator.ValidatedClaims
}

// Client wires one client registration to one trust material: a TLS context
// built once, a token endpoint client, a caching JWKS provider and an ID
// token validator, all sharing the same mutual-TLS connection settings.
//
// A Client is safe for concurrent use and should be constructed once per
// registration, not per request.
type Client struct {
	registration *registration.ClientRegistration
	tlsConfig    *mtls.Config
	tokens       *tokenclient.Client
	keys         *jwks.CachingProvider
	idTokens     *validator.Validator

	logger  Logger
	tracer  Tracer
	metrics Metrics
}

// New sets up a Client for the given registration, authenticating to the
// authorization server with the given trust material.
func New(reg *registration.ClientRegistration, material *truststore.TrustMaterial, opts ...Option) (*Client, error) {
	if reg == nil {
		return nil, errors.New("client registration is required but was nil")
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	if material == nil {
		return nil, errors.New("trust material is required but was nil")
	}

	cfg := clientConfig{
		logger:  &DefaultLogger{},
		tracer:  &NoopTracer{},
		metrics: &NoopMetrics{},
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	builder, err := mtls.NewBuilder(cfg.mtlsOptions...)
	if err != nil {
		return nil, err
	}
	tlsConfig, err := builder.Build(material)
	if err != nil {
		return nil, err
	}

	tokens, err := tokenclient.New(tokenclient.WithMTLSConfig(tlsConfig))
	if err != nil {
		return nil, err
	}

	jwksOpts := []jwks.Option{
		jwks.WithJWKSetURI(reg.JWKSetURI),
		jwks.WithMTLSConfig(tlsConfig),
	}
	if cfg.keyCacheTTL > 0 {
		jwksOpts = append(jwksOpts, jwks.WithCacheTTL(cfg.keyCacheTTL))
	}
	keys, err := jwks.NewCachingProvider(jwksOpts...)
	if err != nil {
		return nil, err
	}

	validatorOpts := []validator.Option{
		validator.WithKeyProvider(keys),
		validator.WithRegistration(reg),
	}
	if cfg.allowedClockSkew > 0 {
		validatorOpts = append(validatorOpts, validator.WithAllowedClockSkew(cfg.allowedClockSkew))
	}
	idTokens, err := validator.New(validatorOpts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		registration: reg,
		tlsConfig:    tlsConfig,
		tokens:       tokens,
		keys:         keys,
		idTokens:     idTokens,
		logger:       cfg.logger,
		tracer:       cfg.tracer,
		metrics:      cfg.metrics,
	}, nil
}

// Registration returns the client registration this Client serves.
func (c *Client) Registration() *registration.ClientRegistration {
	return c.registration
}

// MTLSConfig returns the TLS context shared by all of this Client's
// connections to the authorization server.
func (c *Client) MTLSConfig() *mtls.Config {
	return c.tlsConfig
}

// Authenticate redeems an authorization code over mutual TLS and, when the
// response carries an ID token, validates it against the registration. The
// grant's nonce, when set, must match the ID token nonce.
func (c *Client) Authenticate(ctx context.Context, grant AuthorizationCodeGrant) (*Result, error) {
	ctx, span := c.tracer.StartSpan(ctx, "oidcmtls.Authenticate")
	defer span.Finish()
	span.SetTag("client_id", c.registration.ClientID)

	started := time.Now()
	tokens, err := c.tokens.ExchangeAuthorizationCode(ctx, grant.Code, grant.RedirectURI, c.registration)
	c.observeTokenRequest("authorization_code", started, err)
	if err != nil {
		c.logger.Errorf("token exchange failed for client %s: %v", c.registration.ClientID, err)
		return nil, err
	}

	if tokens.IDToken == "" && grant.Nonce != "" {
		return nil, errors.New("a nonce was expected but the token response carried no ID token")
	}

	result := &Result{Tokens: tokens}
	if tokens.IDToken != "" {
		var validateOpts []validator.ValidateOption
		if grant.Nonce != "" {
			validateOpts = append(validateOpts, validator.WithExpectedNonce(grant.Nonce))
		}
		claims, err := c.validateIDToken(ctx, tokens.IDToken, validateOpts...)
		if err != nil {
			return nil, err
		}
		result.Claims = claims
	}

	c.logger.Debugf("authorization code redeemed for client %s", c.registration.ClientID)
	return result, nil
}

// Refresh exchanges a refresh token over mutual TLS. Refresh responses may
// omit the ID token, in which case Result.Claims is nil.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Result, error) {
	ctx, span := c.tracer.StartSpan(ctx, "oidcmtls.Refresh")
	defer span.Finish()
	span.SetTag("client_id", c.registration.ClientID)

	started := time.Now()
	tokens, err := c.tokens.Refresh(ctx, refreshToken, c.registration)
	c.observeTokenRequest("refresh_token", started, err)
	if err != nil {
		c.logger.Errorf("token refresh failed for client %s: %v", c.registration.ClientID, err)
		return nil, err
	}

	result := &Result{Tokens: tokens}
	if tokens.IDToken != "" {
		claims, err := c.validateIDToken(ctx, tokens.IDToken)
		if err != nil {
			return nil, err
		}
		result.Claims = claims
	}

	c.logger.Debugf("tokens refreshed for client %s", c.registration.ClientID)
	return result, nil
}

func (c *Client) validateIDToken(ctx context.Context, idToken string, opts ...validator.ValidateOption) (*validator.ValidatedClaims, error) {
	claims, err := c.idTokens.ValidateToken(ctx, idToken, opts...)
	result := "ok"
	if err != nil {
		result = "error"
		c.logger.Warnf("ID token validation failed for client %s: %v", c.registration.ClientID, err)
	}
	c.metrics.IncCounter("oidc_id_token_validations_total", map[string]string{
		"client_id": c.registration.ClientID,
		"result":    result,
	})
	return claims, err
}

func (c *Client) observeTokenRequest(grantType string, started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	tags := map[string]string{
		"client_id":  c.registration.ClientID,
		"grant_type": grantType,
		"result":     result,
	}
	c.metrics.IncCounter("oidc_token_requests_total", tags)
	c.metrics.ObserveHistogram("oidc_token_request_duration_seconds", time.Since(started).Seconds(), tags)
}
