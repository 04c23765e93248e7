// Package truststore loads the client certificate, private key and trust
// anchors used for mutual TLS towards the OAuth 2.0 server.
//
// Trust material is read once at startup and is immutable afterwards. The
// mtls package owns the resulting *TrustMaterial for the process lifetime.
package truststore

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// TrustMaterial holds a client certificate chain with its private key and the
// set of trusted roots for server verification. Immutable once loaded.
type TrustMaterial struct {
	certificate tls.Certificate
	leaf        *x509.Certificate
	roots       *x509.CertPool
	rootCount   int
	systemRoots bool
}

// Load reads the configured sources and returns the assembled trust material.
//
// Required options:
//   - WithClientCertificateFile or WithClientCertificatePEM
//   - WithPrivateKeyFile or WithPrivateKeyPEM
//
// Trust anchors must be supplied via WithTrustAnchorsFile or
// WithTrustAnchorsPEM unless WithSystemRoots explicitly opts into the
// system default roots.
//
// Example:
//
//	material, err := truststore.Load(
//	    truststore.WithClientCertificateFile("client.crt"),
//	    truststore.WithPrivateKeyFile("client.key"),
//	    truststore.WithTrustAnchorsFile("ca.crt"),
//	)
func Load(opts ...Option) (*TrustMaterial, error) {
	cfg := &config{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.certPEM) == 0 {
		return nil, &configurationError{details: fmt.Errorf("client certificate source is required")}
	}
	if len(cfg.keyPEM) == 0 {
		return nil, &configurationError{details: fmt.Errorf("private key source is required")}
	}

	// Validate the certificate PEM up front so that malformed certificate
	// sources surface as configuration errors rather than crypto errors.
	if err := checkCertificatePEM(cfg.certPEM); err != nil {
		return nil, &configurationError{details: err}
	}

	certificate, err := tls.X509KeyPair(cfg.certPEM, cfg.keyPEM)
	if err != nil {
		// The certificate parsed cleanly above, so a failure here means the
		// key could not be parsed or does not belong to the certificate.
		return nil, &cryptoError{details: fmt.Errorf("could not assemble key pair: %w", err)}
	}

	leaf, err := x509.ParseCertificate(certificate.Certificate[0])
	if err != nil {
		return nil, &cryptoError{details: fmt.Errorf("could not parse leaf certificate: %w", err)}
	}

	m := &TrustMaterial{
		certificate: certificate,
		leaf:        leaf,
		systemRoots: cfg.systemRoots,
	}

	if len(cfg.trustPEM) > 0 {
		pool := x509.NewCertPool()
		count, err := appendTrustAnchors(pool, cfg.trustPEM)
		if err != nil {
			return nil, &configurationError{details: err}
		}
		m.roots = pool
		m.rootCount = count
	} else if !cfg.systemRoots {
		return nil, &configurationError{
			details: fmt.Errorf("no trust anchors configured; use WithTrustAnchorsFile, WithTrustAnchorsPEM or opt in with WithSystemRoots"),
		}
	}

	return m, nil
}

// Certificate returns the client certificate chain with its private key.
func (m *TrustMaterial) Certificate() tls.Certificate {
	return m.certificate
}

// Leaf returns the parsed leaf client certificate.
func (m *TrustMaterial) Leaf() *x509.Certificate {
	return m.leaf
}

// Roots returns the configured trust anchors, or nil when the system default
// roots are in use.
func (m *TrustMaterial) Roots() *x509.CertPool {
	return m.roots
}

// RootCount returns the number of configured trust anchors.
func (m *TrustMaterial) RootCount() int {
	return m.rootCount
}

// UsesSystemRoots reports whether server verification falls back to the
// system default roots.
func (m *TrustMaterial) UsesSystemRoots() bool {
	return m.roots == nil && m.systemRoots
}

// checkCertificatePEM ensures the certificate source contains at least one
// parseable CERTIFICATE block.
func checkCertificatePEM(pemBytes []byte) error {
	rest := pemBytes
	found := 0
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		if _, err := x509.ParseCertificate(block.Bytes); err != nil {
			return fmt.Errorf("malformed certificate in chain: %w", err)
		}
		found++
	}
	if found == 0 {
		return fmt.Errorf("no CERTIFICATE block found in client certificate source")
	}
	return nil
}

func appendTrustAnchors(pool *x509.CertPool, pemBytes []byte) (int, error) {
	rest := pemBytes
	count := 0
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return 0, fmt.Errorf("malformed trust anchor: %w", err)
		}
		pool.AddCert(cert)
		count++
	}
	if count == 0 {
		return 0, fmt.Errorf("no CERTIFICATE block found in trust anchor source")
	}
	return count, nil
}
