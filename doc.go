// Package oidcmtls is an OAuth2/OIDC client core for confidential clients
// that authenticate to the authorization server with mutual TLS.
//
// The root package composes the leaf packages into a ready-to-use Client:
// truststore loads the client certificate, key and trust anchors, mtls turns
// one loaded trust material into a reusable TLS context, tokenclient performs
// the token endpoint calls over that context, jwks caches the server's
// verification keys, and validator decodes and validates ID tokens.
//
// A minimal flow:
//
//	material, err := truststore.Load(
//		truststore.WithClientCertificateFile("client.pem"),
//		truststore.WithPrivateKeyFile("client.key"),
//		truststore.WithTrustAnchorsFile("roots.pem"),
//	)
//	// handle err
//
//	reg, err := registration.New("client-id", issuer, tokenEndpoint, jwksURI)
//	// handle err
//
//	client, err := oidcmtls.New(reg, material)
//	// handle err
//
//	result, err := client.Authenticate(ctx, oidcmtls.AuthorizationCodeGrant{
//		Code:  code,
//		Nonce: nonce,
//	})
//
// Multiple registrations sharing one trust material are managed through a
// Registry, and TokenSource adapts a refresh token to golang.org/x/oauth2.
package oidcmtls
