package jwks

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/curityio/go-oidc-mtls/mtls"
)

// Option is how options for the CachingProvider are set up.
type Option func(*CachingProvider) error

// WithJWKSetURI sets the JWKS document URI. This is a required option.
func WithJWKSetURI(jwksURI string) Option {
	return func(p *CachingProvider) error {
		if jwksURI == "" {
			return fmt.Errorf("JWK set URI cannot be empty")
		}
		if _, err := url.Parse(jwksURI); err != nil {
			return fmt.Errorf("invalid JWK set URI: %w", err)
		}
		p.jwksURI = jwksURI
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for JWKS fetches. Pass the client
// from mtls.Config.HTTPClient() so that key retrieval uses the same trust as
// the token endpoint calls. If not specified, a default client with a 30s
// timeout is used.
func WithHTTPClient(client *http.Client) Option {
	return func(p *CachingProvider) error {
		if client == nil {
			return fmt.Errorf("HTTP client cannot be nil")
		}
		p.httpClient = client
		return nil
	}
}

// WithMTLSConfig is a convenience for WithHTTPClient(cfg.HTTPClient()).
func WithMTLSConfig(cfg *mtls.Config) Option {
	return func(p *CachingProvider) error {
		if cfg == nil {
			return fmt.Errorf("mTLS config cannot be nil")
		}
		p.httpClient = cfg.HTTPClient()
		return nil
	}
}

// WithCacheTTL sets the cache refresh interval.
// If not specified, defaults to 15 minutes.
func WithCacheTTL(ttl time.Duration) Option {
	return func(p *CachingProvider) error {
		if ttl < 0 {
			return fmt.Errorf("cache TTL cannot be negative")
		}
		if ttl == 0 {
			ttl = 15 * time.Minute
		}
		p.refreshTTL = ttl
		return nil
	}
}
