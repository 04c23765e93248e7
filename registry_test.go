package oidcmtls

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curityio/go-oidc-mtls/registration"
)

func TestRegistry(t *testing.T) {
	env := newTestEnv(t)

	t.Run("it requires trust material", func(t *testing.T) {
		_, err := NewRegistry(nil)
		assert.ErrorContains(t, err, "trust material is required")
	})

	t.Run("it builds a client once per registration", func(t *testing.T) {
		registry, err := NewRegistry(env.material)
		require.NoError(t, err)

		first, err := registry.Register(env.reg)
		require.NoError(t, err)

		second, err := registry.Register(env.reg)
		require.NoError(t, err)

		assert.Same(t, first, second, "a registration must map to exactly one client")
	})

	t.Run("it keeps clients for different registrations apart", func(t *testing.T) {
		registry, err := NewRegistry(env.material)
		require.NoError(t, err)

		first, err := registry.Register(env.reg)
		require.NoError(t, err)

		otherReg, err := registration.New("client-xyz", env.reg.Issuer, env.reg.TokenEndpoint, env.reg.JWKSetURI)
		require.NoError(t, err)

		second, err := registry.Register(otherReg)
		require.NoError(t, err)

		assert.NotSame(t, first, second)
	})

	t.Run("it looks up registered clients by client ID and issuer", func(t *testing.T) {
		registry, err := NewRegistry(env.material)
		require.NoError(t, err)

		registered, err := registry.Register(env.reg)
		require.NoError(t, err)

		found, ok := registry.Client(env.reg.ClientID, env.reg.Issuer)
		require.True(t, ok)
		assert.Same(t, registered, found)

		_, ok = registry.Client("unknown-client", env.reg.Issuer)
		assert.False(t, ok)
	})

	t.Run("concurrent registrations of the same registration share one client", func(t *testing.T) {
		registry, err := NewRegistry(env.material)
		require.NoError(t, err)

		clients := make([]*Client, 10)
		var wg sync.WaitGroup
		for i := range clients {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				client, err := registry.Register(env.reg)
				assert.NoError(t, err)
				clients[i] = client
			}(i)
		}
		wg.Wait()

		for i := 1; i < len(clients); i++ {
			assert.Same(t, clients[0], clients[i])
		}
	})

	t.Run("it rejects an invalid registration", func(t *testing.T) {
		registry, err := NewRegistry(env.material)
		require.NoError(t, err)

		_, err = registry.Register(nil)
		assert.ErrorContains(t, err, "required but was nil")

		_, err = registry.Register(&registration.ClientRegistration{})
		assert.Error(t, err)
	})
}
