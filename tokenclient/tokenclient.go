// Package tokenclient performs OAuth 2.0 token endpoint requests over a
// mutual-TLS secured connection.
//
// The client supports the authorization code and refresh token grants, each
// a single form-encoded HTTPS POST. It never retries; retry policy belongs
// to the caller.
package tokenclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/curityio/go-oidc-mtls/internal/transport"
	"github.com/curityio/go-oidc-mtls/registration"
)

// Grant types used on the wire.
const (
	grantTypeAuthorizationCode = "authorization_code"
	grantTypeRefreshToken      = "refresh_token"
)

// Token responses are small JSON documents; cap reads defensively.
const maxResponseBytes = 1 << 20

// Client performs token endpoint requests. Build one per mutual-TLS
// configuration and reuse it across flows; it is safe for concurrent use.
type Client struct {
	httpClient *http.Client
}

// New builds and returns a new *Client.
//
// Optional options:
//   - WithHTTPClient: the mutual-TLS configured HTTP client to use; pass
//     mtls.Config.HTTPClient() here. Defaults to a plain client with a 30s
//     timeout, which is only suitable for servers that do not require
//     client certificates.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	return c, nil
}

// TokenResponse is the parsed body of a successful token endpoint call.
// The core does not persist it; lifetime management is the caller's
// responsibility.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresIn    ExpiresIn `json:"expires_in,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	Scope        string    `json:"scope,omitempty"`
}

// ExpiresIn is the access token lifetime in seconds. Providers serialize it
// as either a JSON number or a string, so both are accepted.
type ExpiresIn int64

func (e *ExpiresIn) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*e = ExpiresIn(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expires_in is neither a number nor a string")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("expires_in string is not numeric: %w", err)
	}
	*e = ExpiresIn(n)
	return nil
}

// ExchangeAuthorizationCode redeems an authorization code at the token
// endpoint of the given registration. redirectURI overrides the registered
// redirect URI when non-empty.
func (c *Client) ExchangeAuthorizationCode(
	ctx context.Context,
	code string,
	redirectURI string,
	reg *registration.ClientRegistration,
) (*TokenResponse, error) {
	if code == "" {
		return nil, &protocolError{details: fmt.Errorf("authorization code cannot be empty")}
	}
	if redirectURI == "" {
		redirectURI = reg.RedirectURI
	}

	form := url.Values{}
	form.Set("grant_type", grantTypeAuthorizationCode)
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", reg.ClientID)

	return c.post(ctx, reg.TokenEndpoint, form)
}

// Refresh exchanges a refresh token for a fresh token response at the token
// endpoint of the given registration.
func (c *Client) Refresh(
	ctx context.Context,
	refreshToken string,
	reg *registration.ClientRegistration,
) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, &protocolError{details: fmt.Errorf("refresh token cannot be empty")}
	}

	form := url.Values{}
	form.Set("grant_type", grantTypeRefreshToken)
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", reg.ClientID)

	return c.post(ctx, reg.TokenEndpoint, form)
}

// post performs one form-encoded POST and parses the response. No retries:
// every failure maps to exactly one tagged error and propagates.
func (c *Client) post(ctx context.Context, endpoint string, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &protocolError{details: fmt.Errorf("could not build token request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transport.New(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transport.New(fmt.Errorf("could not read token response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAuthServerError(resp.StatusCode, body)
	}

	var tokenResponse TokenResponse
	if err := json.Unmarshal(body, &tokenResponse); err != nil {
		return nil, &protocolError{details: fmt.Errorf("could not parse token response: %w", err)}
	}
	if tokenResponse.AccessToken == "" {
		return nil, &protocolError{details: fmt.Errorf("token response is missing access_token")}
	}

	return &tokenResponse, nil
}
