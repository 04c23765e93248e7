package tokenclient

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/curityio/go-oidc-mtls/internal/transport"
)

// ErrNetwork is returned when the token request fails at the transport
// layer, including handshake and request timeouts. Recoverable by the
// caller's retry policy; this client never retries internally. The same
// error class tags JWKS fetch failures, so a retry policy written against
// it covers both network calls of a flow.
var ErrNetwork = transport.ErrNetwork

// ErrProtocol is returned when a 2xx response body cannot be parsed as
// a token response. Non-recoverable for that call.
var ErrProtocol = errors.New("malformed token response")

// AuthServerError is returned when the token endpoint answers with a non-2xx
// status. StatusCode and Body are preserved for diagnostics; ErrorCode and
// ErrorDescription are filled in when the body is a standard OAuth 2.0 error
// document.
type AuthServerError struct {
	StatusCode       int
	Body             string
	ErrorCode        string
	ErrorDescription string
}

func (e *AuthServerError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("token endpoint returned status %d: %s: %s", e.StatusCode, e.ErrorCode, e.ErrorDescription)
	}
	return fmt.Sprintf("token endpoint returned status %d", e.StatusCode)
}

// protocolError wraps a parse failure with the concrete error ErrProtocol.
type protocolError struct {
	details error
}

func (e *protocolError) Is(target error) bool {
	return target == ErrProtocol
}

func (e *protocolError) Error() string {
	return fmt.Sprintf("%s: %s", ErrProtocol, e.details)
}

func (e *protocolError) Unwrap() error {
	return e.details
}

// IsTimeout reports whether err is a network error caused by a timeout,
// either the TLS handshake bound or the overall request bound.
func IsTimeout(err error) bool {
	return transport.IsTimeout(err)
}

func newAuthServerError(status int, body []byte) *AuthServerError {
	serverErr := &AuthServerError{
		StatusCode: status,
		Body:       string(body),
	}

	// Best effort: surface the RFC 6749 error fields when present.
	var oauthErr struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &oauthErr); err == nil {
		serverErr.ErrorCode = oauthErr.Error
		serverErr.ErrorDescription = oauthErr.ErrorDescription
	}

	return serverErr
}
