package validator

// ValidatedClaims is the validated output of an ID token: the registered
// claims plus every remaining claim in the token. Immutable once returned.
type ValidatedClaims struct {
	RegisteredClaims RegisteredClaims
	CustomClaims     map[string]any
}

// RegisteredClaims represents public claim
// values (as specified in RFC 7519).
type RegisteredClaims struct {
	Issuer    string   `json:"iss,omitempty"`
	Subject   string   `json:"sub,omitempty"`
	Audience  []string `json:"aud,omitempty"`
	Expiry    int64    `json:"exp,omitempty"`
	NotBefore int64    `json:"nbf,omitempty"`
	IssuedAt  int64    `json:"iat,omitempty"`
	ID        string   `json:"jti,omitempty"`
}
