package mtls

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curityio/go-oidc-mtls/truststore"
)

func generateKeyPairPEM(t *testing.T, commonName string) (certPEM, keyPEM []byte) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		IsCA:         true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM
}

// generateServerCert issues a server certificate for dnsName, signed by a
// fresh CA, without any IP SANs.
func generateServerCert(t *testing.T, dnsName string) (caPEM []byte, serverCert tls.Certificate) {
	t.Helper()

	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	caTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(2),
		Subject:               pkix.Name{CommonName: "test root"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTemplate, caTemplate, &caKey.PublicKey, caKey)
	require.NoError(t, err)
	caCert, err := x509.ParseCertificate(caDER)
	require.NoError(t, err)

	serverKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	serverTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(3),
		Subject:      pkix.Name{CommonName: dnsName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{dnsName},
	}
	serverDER, err := x509.CreateCertificate(rand.Reader, serverTemplate, caCert, &serverKey.PublicKey, caKey)
	require.NoError(t, err)

	caPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: caDER})
	serverCert = tls.Certificate{Certificate: [][]byte{serverDER}, PrivateKey: serverKey}
	return caPEM, serverCert
}

func loadTestMaterial(t *testing.T) *truststore.TrustMaterial {
	t.Helper()

	certPEM, keyPEM := generateKeyPairPEM(t, "client")
	caPEM, _ := generateKeyPairPEM(t, "ca")

	material, err := truststore.Load(
		truststore.WithClientCertificatePEM(certPEM),
		truststore.WithPrivateKeyPEM(keyPEM),
		truststore.WithTrustAnchorsPEM(caPEM),
	)
	require.NoError(t, err)
	return material
}

func TestBuilder_Build(t *testing.T) {
	t.Run("it reuses the configuration for identical trust material", func(t *testing.T) {
		builder, err := NewBuilder()
		require.NoError(t, err)

		material := loadTestMaterial(t)

		first, err := builder.Build(material)
		require.NoError(t, err)
		second, err := builder.Build(material)
		require.NoError(t, err)

		assert.Same(t, first, second, "expected the identical config instance on repeated builds")
		assert.Same(t, first.HTTPClient(), second.HTTPClient())
	})

	t.Run("it builds distinct configurations for distinct trust material", func(t *testing.T) {
		builder, err := NewBuilder()
		require.NoError(t, err)

		first, err := builder.Build(loadTestMaterial(t))
		require.NoError(t, err)
		second, err := builder.Build(loadTestMaterial(t))
		require.NoError(t, err)

		assert.NotSame(t, first, second)
	})

	t.Run("it applies the default timeouts", func(t *testing.T) {
		builder, err := NewBuilder()
		require.NoError(t, err)

		cfg, err := builder.Build(loadTestMaterial(t))
		require.NoError(t, err)

		assert.Equal(t, DefaultHandshakeTimeout, cfg.HandshakeTimeout())
		assert.Equal(t, DefaultRequestTimeout, cfg.HTTPClient().Timeout)
	})

	t.Run("it applies configured timeouts", func(t *testing.T) {
		builder, err := NewBuilder(
			WithHandshakeTimeout(500*time.Millisecond),
			WithRequestTimeout(5*time.Second),
		)
		require.NoError(t, err)

		cfg, err := builder.Build(loadTestMaterial(t))
		require.NoError(t, err)

		assert.Equal(t, 500*time.Millisecond, cfg.HandshakeTimeout())
		assert.Equal(t, 5*time.Second, cfg.HTTPClient().Timeout)
	})

	t.Run("it fails with ErrCrypto when the chain order is inconsistent", func(t *testing.T) {
		certPEM, keyPEM := generateKeyPairPEM(t, "client")
		unrelatedPEM, _ := generateKeyPairPEM(t, "unrelated")
		caPEM, _ := generateKeyPairPEM(t, "ca")

		// A chain whose second certificate did not sign the first.
		chain := bytes.Join([][]byte{certPEM, unrelatedPEM}, nil)

		material, err := truststore.Load(
			truststore.WithClientCertificatePEM(chain),
			truststore.WithPrivateKeyPEM(keyPEM),
			truststore.WithTrustAnchorsPEM(caPEM),
		)
		require.NoError(t, err)

		builder, err := NewBuilder()
		require.NoError(t, err)

		_, err = builder.Build(material)
		require.Error(t, err)
		assert.ErrorIs(t, err, truststore.ErrCrypto)
	})

	t.Run("it rejects nil trust material", func(t *testing.T) {
		builder, err := NewBuilder()
		require.NoError(t, err)

		_, err = builder.Build(nil)
		require.Error(t, err)
	})

	t.Run("it rejects invalid options", func(t *testing.T) {
		_, err := NewBuilder(WithHandshakeTimeout(0))
		require.Error(t, err)

		_, err = NewBuilder(WithRequestTimeout(-time.Second))
		require.Error(t, err)
	})

	t.Run("it skips the hostname but keeps the chain check when configured", func(t *testing.T) {
		caPEM, serverCert := generateServerCert(t, "internal.example.com")

		server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		server.TLS = &tls.Config{Certificates: []tls.Certificate{serverCert}}
		server.StartTLS()
		defer server.Close()

		certPEM, keyPEM := generateKeyPairPEM(t, "client")
		trusting, err := truststore.Load(
			truststore.WithClientCertificatePEM(certPEM),
			truststore.WithPrivateKeyPEM(keyPEM),
			truststore.WithTrustAnchorsPEM(caPEM),
		)
		require.NoError(t, err)

		// The server certificate names internal.example.com, not 127.0.0.1,
		// so the default builder must refuse the connection.
		strict, err := NewBuilder()
		require.NoError(t, err)
		strictCfg, err := strict.Build(trusting)
		require.NoError(t, err)

		_, err = strictCfg.HTTPClient().Get(server.URL)
		require.Error(t, err, "hostname verification must reject a certificate for another name")

		relaxed, err := NewBuilder(WithoutHostnameVerification())
		require.NoError(t, err)
		relaxedCfg, err := relaxed.Build(trusting)
		require.NoError(t, err)

		resp, err := relaxedCfg.HTTPClient().Get(server.URL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		// Chain-of-trust verification stays in force: material trusting an
		// unrelated root must still be refused.
		otherCAPEM, _ := generateKeyPairPEM(t, "unrelated-ca")
		untrusting, err := truststore.Load(
			truststore.WithClientCertificatePEM(certPEM),
			truststore.WithPrivateKeyPEM(keyPEM),
			truststore.WithTrustAnchorsPEM(otherCAPEM),
		)
		require.NoError(t, err)

		untrustingCfg, err := relaxed.Build(untrusting)
		require.NoError(t, err)

		_, err = untrustingCfg.HTTPClient().Get(server.URL)
		require.Error(t, err, "skipping the hostname must not skip chain verification")
	})

	t.Run("TLSConfig returns a clone", func(t *testing.T) {
		builder, err := NewBuilder()
		require.NoError(t, err)

		cfg, err := builder.Build(loadTestMaterial(t))
		require.NoError(t, err)

		clone := cfg.TLSConfig()
		clone.InsecureSkipVerify = true

		assert.False(t, cfg.TLSConfig().InsecureSkipVerify)
	})
}
