package jwks

import (
	"errors"
	"fmt"

	"github.com/curityio/go-oidc-mtls/internal/transport"
)

// ErrNetwork is returned when the JWKS fetch fails at the transport layer,
// including timeouts. It is the same error class the token endpoint client
// uses, so one retry policy covers both network calls of a flow.
var ErrNetwork = transport.ErrNetwork

// IsTimeout reports whether err is a network error caused by a timeout.
func IsTimeout(err error) bool {
	return transport.IsTimeout(err)
}

// ErrKeyNotFound is returned when the key set does not contain the required
// key ID even after a forced refresh. Fatal for that token; a later token
// signed with a newly published key will trigger its own refresh.
var ErrKeyNotFound = errors.New("signing key not found in JWKS")

// keyNotFoundError carries the key ID and URI for diagnostics while
// supporting equality to ErrKeyNotFound.
type keyNotFoundError struct {
	keyID   string
	jwksURI string
}

func (e *keyNotFoundError) Is(target error) bool {
	return target == ErrKeyNotFound
}

func (e *keyNotFoundError) Error() string {
	return fmt.Sprintf("%s: key ID %q not present at %s after refresh", ErrKeyNotFound, e.keyID, e.jwksURI)
}
