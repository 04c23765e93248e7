// Package registration describes the OAuth 2.0 client registration this
// module authenticates with: client identifier, issuer, and the endpoints
// used for token exchange and key retrieval.
//
// A ClientRegistration is loaded once at startup and treated as read-only
// afterwards.
package registration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/curityio/go-oidc-mtls/internal/oidc"
)

// ClientRegistration holds the static description of one OAuth 2.0 client.
type ClientRegistration struct {
	// ClientID is the OAuth 2.0 client identifier. Required.
	ClientID string

	// Issuer is the expected issuer of ID tokens. Required.
	Issuer string

	// TokenEndpoint is the URI the token requests are POSTed to. Required.
	TokenEndpoint string

	// JWKSetURI is the URI of the JSON Web Key Set document. Required.
	JWKSetURI string

	// RedirectURI is the redirect URI registered for the authorization code
	// flow. Optional; a per-call redirect URI overrides it.
	RedirectURI string
}

// New builds a validated ClientRegistration from explicit endpoint URIs.
func New(clientID, issuer, tokenEndpoint, jwkSetURI string) (*ClientRegistration, error) {
	r := &ClientRegistration{
		ClientID:      clientID,
		Issuer:        issuer,
		TokenEndpoint: tokenEndpoint,
		JWKSetURI:     jwkSetURI,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// FromIssuer builds a ClientRegistration by resolving the token endpoint and
// JWKS URI from the issuer's .well-known/openid-configuration document. The
// supplied client must carry the mutual-TLS configuration used for every
// other call to the OAuth 2.0 server. redirectURI may be empty for clients
// that only refresh.
func FromIssuer(ctx context.Context, client *http.Client, issuer, clientID, redirectURI string) (*ClientRegistration, error) {
	issuerURL, err := url.Parse(issuer)
	if err != nil {
		return nil, fmt.Errorf("could not parse issuer URL: %w", err)
	}

	endpoints, err := oidc.GetWellKnownEndpointsFromIssuerURL(ctx, client, *issuerURL)
	if err != nil {
		return nil, fmt.Errorf("could not discover endpoints for issuer %q: %w", issuer, err)
	}

	reg, err := New(clientID, issuer, endpoints.TokenEndpoint, endpoints.JWKSURI)
	if err != nil {
		return nil, err
	}
	reg.RedirectURI = redirectURI
	return reg, nil
}

// Validate checks that all required fields are present and the endpoint URIs
// are parseable.
func (r *ClientRegistration) Validate() error {
	if r.ClientID == "" {
		return errors.New("client ID is required but was empty")
	}
	if r.Issuer == "" {
		return errors.New("issuer is required but was empty")
	}
	if r.TokenEndpoint == "" {
		return errors.New("token endpoint is required but was empty")
	}
	if _, err := url.Parse(r.TokenEndpoint); err != nil {
		return fmt.Errorf("invalid token endpoint URI: %w", err)
	}
	if r.JWKSetURI == "" {
		return errors.New("JWK set URI is required but was empty")
	}
	if _, err := url.Parse(r.JWKSetURI); err != nil {
		return fmt.Errorf("invalid JWK set URI: %w", err)
	}
	return nil
}
