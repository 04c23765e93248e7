/*
Package oidc provides OIDC (OpenID Connect) discovery functionality.

This internal package implements the logic to discover OIDC provider endpoints
by fetching the .well-known/openid-configuration document from the issuer.

The HTTP client passed to GetWellKnownEndpointsFromIssuerURL should be the
mutual-TLS configured client built by the mtls package, so that discovery uses
the same trust as every other call to the OAuth 2.0 server.

The metadata issuer is compared against the issuer the document was fetched
from, and a mismatch rejects the document.
*/
package oidc
