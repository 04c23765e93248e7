// Package jwks fetches and caches the JSON Web Key Set published by the
// OAuth 2.0 server, over the same mutual-TLS configuration as every other
// outbound call.
//
// One CachingProvider serves one JWKS URI. The cache holds the whole key
// set; a refresh replaces it entirely rather than merging per key. The only
// shared mutable state in this module is this cache, and concurrent
// refreshes for the same URI are coalesced into a single in-flight fetch.
package jwks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/sync/singleflight"

	"github.com/curityio/go-oidc-mtls/internal/transport"
)

// Key sets are small documents; cap reads defensively.
const maxResponseBytes = 1 << 20

// CachingProvider handles getting and caching the JWKS for a single JWKS
// URI. It exposes KeyFunc, which adheres to the keyFunc signature the
// Validator requires, and Key, which resolves a single key by its key ID
// with the forced-refresh-on-miss behavior.
//
// Thread-safe; the in-memory cache is rebuilt on restart.
type CachingProvider struct {
	jwksURI    string
	httpClient *http.Client
	refreshTTL time.Duration

	group singleflight.Group

	mu        sync.RWMutex
	set       jwk.Set
	fetchedAt time.Time
	expiresAt time.Time
}

// NewCachingProvider builds and returns a new *CachingProvider.
//
// Required options:
//   - WithJWKSetURI: the JWKS document URI
//
// Optional options:
//   - WithHTTPClient: the mutual-TLS configured HTTP client
//     (pass mtls.Config.HTTPClient())
//   - WithCacheTTL: cache refresh interval (default: 15 minutes)
//
// Example:
//
//	provider, err := jwks.NewCachingProvider(
//	    jwks.WithJWKSetURI(reg.JWKSetURI),
//	    jwks.WithHTTPClient(tlsConfig.HTTPClient()),
//	)
func NewCachingProvider(opts ...Option) (*CachingProvider, error) {
	p := &CachingProvider{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		refreshTTL: 15 * time.Minute,
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if p.jwksURI == "" {
		return nil, fmt.Errorf("JWK set URI is required (use WithJWKSetURI)")
	}

	return p, nil
}

// Key returns the public key with the given key ID. A cached fresh set is
// consulted first; on a miss the whole set is re-fetched exactly once
// (coalesced with concurrent refreshes) and the lookup retried. A second
// miss fails with ErrKeyNotFound.
func (p *CachingProvider) Key(ctx context.Context, keyID string) (jwk.Key, error) {
	p.mu.RLock()
	set := p.set
	fresh := time.Now().Before(p.expiresAt)
	p.mu.RUnlock()

	if set != nil && fresh {
		if key, ok := set.LookupKeyID(keyID); ok {
			return key, nil
		}
	}

	set, err := p.refresh(ctx)
	if err != nil {
		return nil, err
	}

	if key, ok := set.LookupKeyID(keyID); ok {
		return key, nil
	}
	return nil, &keyNotFoundError{keyID: keyID, jwksURI: p.jwksURI}
}

// KeyFunc adheres to the keyFunc signature that the Validator requires.
// While it returns an interface, as long as the error is nil the type will
// be jwk.Set.
func (p *CachingProvider) KeyFunc(ctx context.Context) (any, error) {
	p.mu.RLock()
	set := p.set
	fresh := time.Now().Before(p.expiresAt)
	p.mu.RUnlock()

	if set != nil && fresh {
		return set, nil
	}

	return p.refresh(ctx)
}

// refresh fetches the key set and replaces the cached set wholesale.
// Concurrent callers for the same URI share a single in-flight fetch and
// its result. The fetch itself is detached from the triggering caller's
// cancellation so one impatient caller cannot fail every coalesced waiter;
// a caller whose context ends stops waiting without aborting the fetch.
func (p *CachingProvider) refresh(ctx context.Context) (jwk.Set, error) {
	ch := p.group.DoChan(p.jwksURI, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		if p.httpClient.Timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, p.httpClient.Timeout)
			defer cancel()
		}

		set, cacheTTL, err := p.fetch(fetchCtx)
		if err != nil {
			return nil, err
		}

		// A Cache-Control max-age longer than the configured TTL extends
		// the cache lifetime; a shorter one never shrinks it.
		effectiveTTL := p.refreshTTL
		if cacheTTL > effectiveTTL {
			effectiveTTL = cacheTTL
		}

		now := time.Now()
		p.mu.Lock()
		p.set = set
		p.fetchedAt = now
		p.expiresAt = now.Add(effectiveTTL)
		p.mu.Unlock()

		return set, nil
	})

	select {
	case <-ctx.Done():
		return nil, transport.New(ctx.Err())
	case result := <-ch:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.(jwk.Set), nil
	}
}

func (p *CachingProvider) fetch(ctx context.Context) (jwk.Set, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.jwksURI, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("could not build JWKS request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, transport.New(fmt.Errorf("could not fetch JWKS from %s: %w", p.jwksURI, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("JWKS endpoint %s returned status %d, expected 200", p.jwksURI, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, 0, transport.New(fmt.Errorf("could not read JWKS response body: %w", err))
	}

	set, err := jwk.Parse(body)
	if err != nil {
		return nil, 0, fmt.Errorf("could not parse JWKS document: %w", err)
	}

	return set, parseCacheControl(resp.Header.Get("Cache-Control")), nil
}

// parseCacheControl extracts a usable max-age from a Cache-Control header.
// Returns 0 when absent, non-numeric, or outside the [1s, 7d] bounds.
func parseCacheControl(header string) time.Duration {
	const (
		minTTL = time.Second
		maxTTL = 7 * 24 * time.Hour
	)

	for _, directive := range strings.Split(header, ",") {
		directive = strings.TrimSpace(directive)
		value, ok := strings.CutPrefix(directive, "max-age=")
		if !ok {
			continue
		}
		seconds, err := strconv.ParseInt(value, 10, 64)
		if err != nil || seconds <= 0 {
			continue
		}
		ttl := time.Duration(seconds) * time.Second
		if ttl < minTTL || ttl > maxTTL {
			return 0
		}
		return ttl
	}
	return 0
}
