package validator

import (
	"errors"
	"fmt"

	"github.com/curityio/go-oidc-mtls/jwks"
)

// ErrKeyNotFound is re-exported so callers matching validation failures do
// not need to import the jwks package.
var ErrKeyNotFound = jwks.ErrKeyNotFound

var (
	// ErrSignature is returned when the token is malformed or its
	// signature cannot be verified against the resolved key.
	ErrSignature = errors.New("token signature invalid")

	// ErrUnsupportedAlgorithm is returned for tokens signed with a
	// MAC-based (shared secret) algorithm. Verification against a custom
	// trust store only supports asymmetric keys; this restriction is
	// deliberate and is not a general JWT limitation.
	ErrUnsupportedAlgorithm = errors.New("token uses an unsupported signing algorithm")

	// ErrValidation is the umbrella for semantic claim failures. Match the
	// concrete failed check via *ValidationError.
	ErrValidation = errors.New("claim validation failed")
)

// Check names the claim validation rule that failed.
type Check string

// Checks, in the order they are applied. The first failing check
// short-circuits validation.
const (
	IssuerMismatch   = Check("issuer mismatch")
	AudienceMismatch = Check("audience mismatch")
	Expired          = Check("token expired")
	NotYetValid      = Check("token not yet valid")
	NonceMismatch    = Check("nonce mismatch")
)

// ValidationError reports the first claim check that failed. Claim
// validation failures always surface to the caller and are never retried.
type ValidationError struct {
	Check   Check
	details string
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Check, e.details)
}

// signatureError wraps a parse or verification failure with the concrete
// error ErrSignature.
type signatureError struct {
	details error
}

func (e *signatureError) Is(target error) bool {
	return target == ErrSignature
}

func (e *signatureError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSignature, e.details)
}

func (e *signatureError) Unwrap() error {
	return e.details
}
