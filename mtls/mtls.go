// Package mtls builds reusable TLS client configurations from loaded trust
// material.
//
// A Builder hands out exactly one *Config per distinct *truststore.TrustMaterial
// and never rebuilds it per request. The resulting Config (and the HTTP client
// it carries) is immutable and safe to share across concurrent flows.
package mtls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/curityio/go-oidc-mtls/truststore"
)

const (
	// DefaultHandshakeTimeout bounds the TLS handshake towards the
	// OAuth 2.0 server.
	DefaultHandshakeTimeout = 2 * time.Second

	// DefaultRequestTimeout bounds a whole outbound request, handshake
	// included.
	DefaultRequestTimeout = 30 * time.Second
)

// Config is a reusable mutual-TLS client configuration. Obtain one from a
// Builder; do not construct it directly.
type Config struct {
	tlsConfig        *tls.Config
	httpClient       *http.Client
	handshakeTimeout time.Duration
	requestTimeout   time.Duration
}

// TLSConfig returns a clone of the underlying TLS configuration, so callers
// can hand it to other transports without racing the shared copy.
func (c *Config) TLSConfig() *tls.Config {
	return c.tlsConfig.Clone()
}

// HTTPClient returns the HTTP client backed by this configuration. The client
// is built once per Config and shared; its transport pools connections across
// all flows using the same trust material.
func (c *Config) HTTPClient() *http.Client {
	return c.httpClient
}

// HandshakeTimeout returns the configured TLS handshake bound.
func (c *Config) HandshakeTimeout() time.Duration {
	return c.handshakeTimeout
}

// Builder constructs and caches mutual-TLS configurations per trust material.
type Builder struct {
	mu      sync.Mutex
	configs map[*truststore.TrustMaterial]*Config

	handshakeTimeout time.Duration
	requestTimeout   time.Duration
	skipVerify       bool
}

// NewBuilder returns a Builder with the supplied options applied.
//
// Optional options:
//   - WithHandshakeTimeout: TLS handshake bound (default: 2s)
//   - WithRequestTimeout: overall request bound (default: 30s)
//   - WithoutHostnameVerification: disable hostname verification (testing only)
func NewBuilder(opts ...Option) (*Builder, error) {
	b := &Builder{
		configs:          make(map[*truststore.TrustMaterial]*Config),
		handshakeTimeout: DefaultHandshakeTimeout,
		requestTimeout:   DefaultRequestTimeout,
	}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	return b, nil
}

// Build returns the mutual-TLS configuration for the given trust material,
// constructing it on first use and returning the identical instance on every
// subsequent call. Fails with truststore.ErrCrypto when the certificate chain
// is not internally consistent.
func (b *Builder) Build(material *truststore.TrustMaterial) (*Config, error) {
	if material == nil {
		return nil, fmt.Errorf("trust material is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if cfg, ok := b.configs[material]; ok {
		return cfg, nil
	}

	if err := checkChainOrder(material.Certificate().Certificate); err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{material.Certificate()},
		RootCAs:      material.Roots(),
	}
	if b.skipVerify {
		roots := material.Roots()
		if roots == nil {
			systemRoots, err := x509.SystemCertPool()
			if err != nil {
				return nil, fmt.Errorf("could not load system roots: %w", err)
			}
			roots = systemRoots
		}
		// Skipping the standard verifier bypasses chain validation too, so
		// it is reinstated here minus the hostname match.
		tlsConfig.InsecureSkipVerify = true
		tlsConfig.VerifyPeerCertificate = verifyChainOnly(roots)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     tlsConfig,
		TLSHandshakeTimeout: b.handshakeTimeout,
		ForceAttemptHTTP2:   true,
	}

	cfg := &Config{
		tlsConfig:        tlsConfig,
		handshakeTimeout: b.handshakeTimeout,
		requestTimeout:   b.requestTimeout,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   b.requestTimeout,
		},
	}
	b.configs[material] = cfg

	return cfg, nil
}

// verifyChainOnly validates the server certificate chain against the trust
// anchors without matching the hostname.
func verifyChainOnly(roots *x509.CertPool) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return fmt.Errorf("%w: server presented no certificate", truststore.ErrCrypto)
		}

		certs := make([]*x509.Certificate, 0, len(rawCerts))
		for _, raw := range rawCerts {
			cert, err := x509.ParseCertificate(raw)
			if err != nil {
				return fmt.Errorf("%w: could not parse server certificate: %s", truststore.ErrCrypto, err)
			}
			certs = append(certs, cert)
		}

		opts := x509.VerifyOptions{
			Roots:         roots,
			Intermediates: x509.NewCertPool(),
			KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		}
		for _, cert := range certs[1:] {
			opts.Intermediates.AddCert(cert)
		}

		if _, err := certs[0].Verify(opts); err != nil {
			return fmt.Errorf("%w: server chain verification failed: %s", truststore.ErrCrypto, err)
		}
		return nil
	}
}

// checkChainOrder verifies that each certificate in the chain is signed by
// its successor. A chain of one is trivially consistent.
func checkChainOrder(chain [][]byte) error {
	certs := make([]*x509.Certificate, 0, len(chain))
	for _, der := range chain {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return fmt.Errorf("%w: could not parse chain certificate: %s", truststore.ErrCrypto, err)
		}
		certs = append(certs, cert)
	}

	for i := 0; i+1 < len(certs); i++ {
		if err := certs[i].CheckSignatureFrom(certs[i+1]); err != nil {
			return fmt.Errorf("%w: certificate %q is not signed by its chain successor %q: %s",
				truststore.ErrCrypto, certs[i].Subject.CommonName, certs[i+1].Subject.CommonName, err)
		}
	}

	return nil
}
