package oidcmtls

import (
	"fmt"
	"sync"

	"github.com/curityio/go-oidc-mtls/registration"
	"github.com/curityio/go-oidc-mtls/truststore"
)

// Registry manages one Client per registration, all sharing the same trust
// material and options. Each Client is built once, on first registration,
// and reused for every later lookup.
//
// Registry is safe for concurrent use.
type Registry struct {
	material *truststore.TrustMaterial
	options  []Option

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewRegistry sets up an empty Registry. The options are applied to every
// Client the Registry builds.
func NewRegistry(material *truststore.TrustMaterial, opts ...Option) (*Registry, error) {
	if material == nil {
		return nil, fmt.Errorf("trust material is required but was nil")
	}
	return &Registry{
		material: material,
		options:  opts,
		clients:  make(map[string]*Client),
	}, nil
}

// Register builds a Client for the registration, or returns the existing one
// when the same client ID and issuer pair was registered before.
func (r *Registry) Register(reg *registration.ClientRegistration) (*Client, error) {
	if reg == nil {
		return nil, fmt.Errorf("client registration is required but was nil")
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	key := registryKey(reg.ClientID, reg.Issuer)

	r.mu.RLock()
	client, ok := r.clients[key]
	r.mu.RUnlock()
	if ok {
		return client, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if client, ok := r.clients[key]; ok {
		return client, nil
	}

	client, err := New(reg, r.material, r.options...)
	if err != nil {
		return nil, fmt.Errorf("could not build client for %s: %w", key, err)
	}
	r.clients[key] = client
	return client, nil
}

// Client looks up a previously registered Client by client ID and issuer.
func (r *Registry) Client(clientID, issuer string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[registryKey(clientID, issuer)]
	return client, ok
}

func registryKey(clientID, issuer string) string {
	return clientID + "@" + issuer
}
