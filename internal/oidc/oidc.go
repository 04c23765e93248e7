package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
)

// WellKnownEndpoints holds the well known OIDC endpoints used by this module.
type WellKnownEndpoints struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
}

// GetWellKnownEndpointsFromIssuerURL gets the well known endpoints for the
// passed in issuer url. The supplied client carries the mutual-TLS
// configuration; discovery must use the same trust as every other call to
// the OAuth 2.0 server.
//
// The issuer advertised by the metadata document must match the issuer it
// was fetched from, otherwise the document is rejected.
func GetWellKnownEndpointsFromIssuerURL(
	ctx context.Context,
	client *http.Client,
	issuerURL url.URL,
) (*WellKnownEndpoints, error) {
	expectedIssuer := issuerURL.String()
	issuerURL.Path = path.Join(issuerURL.Path, ".well-known/openid-configuration")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, issuerURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not build request to get well known endpoints: %w", err)
	}

	if client == nil {
		client = http.DefaultClient
	}

	response, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not get well known endpoints from url %s: %w", issuerURL.String(), err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery endpoint %s returned status %d, expected 200", issuerURL.String(), response.StatusCode)
	}

	var wkEndpoints WellKnownEndpoints
	if err := json.NewDecoder(response.Body).Decode(&wkEndpoints); err != nil {
		return nil, fmt.Errorf("could not decode json body when getting well known endpoints: %w", err)
	}

	if wkEndpoints.Issuer != "" && !issuerMatches(wkEndpoints.Issuer, expectedIssuer) {
		return nil, fmt.Errorf("discovery document issuer %q does not match expected issuer %q", wkEndpoints.Issuer, expectedIssuer)
	}

	return &wkEndpoints, nil
}

// issuerMatches compares issuers ignoring a single trailing slash, which
// providers are inconsistent about.
func issuerMatches(got, want string) bool {
	return trimSlash(got) == trimSlash(want)
}

func trimSlash(s string) string {
	if len(s) > 0 && s[len(s)-1] == '/' {
		return s[:len(s)-1]
	}
	return s
}
