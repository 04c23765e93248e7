package tokenclient

import (
	"errors"
	"net/http"

	"github.com/curityio/go-oidc-mtls/mtls"
)

// Option is how options for the Client are set up.
// Options return errors to enable validation during construction.
type Option func(*Client) error

// WithHTTPClient sets the HTTP client used for token requests. Pass the
// client from mtls.Config.HTTPClient() so that token requests present the
// client certificate and trust the configured roots.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		if client == nil {
			return errors.New("HTTP client cannot be nil")
		}
		c.httpClient = client
		return nil
	}
}

// WithMTLSConfig is a convenience for WithHTTPClient(cfg.HTTPClient()).
func WithMTLSConfig(cfg *mtls.Config) Option {
	return func(c *Client) error {
		if cfg == nil {
			return errors.New("mTLS config cannot be nil")
		}
		c.httpClient = cfg.HTTPClient()
		return nil
	}
}
