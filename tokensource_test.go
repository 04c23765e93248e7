package oidcmtls

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenSource(t *testing.T) {
	t.Run("it refreshes lazily and caches the access token", func(t *testing.T) {
		env := newTestEnv(t)

		client, err := New(env.reg, env.material)
		require.NoError(t, err)

		source := client.TokenSource(context.Background(), "rt-123")

		token, err := source.Token()
		require.NoError(t, err)
		assert.Equal(t, "at-123", token.AccessToken)
		assert.True(t, token.Valid())

		// A second call is served from the cached token.
		_, err = source.Token()
		require.NoError(t, err)
		assert.Len(t, env.recordedTokenRequests(), 1)
	})

	t.Run("it follows refresh token rotation", func(t *testing.T) {
		env := newTestEnv(t)

		refreshTokens := []string{"rt-rotated-1", "rt-rotated-2"}
		var served int
		env.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			env.mu.Lock()
			env.tokenRequests = append(env.tokenRequests, r.PostForm)
			next := refreshTokens[served]
			served++
			env.mu.Unlock()

			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "at-" + next,
				"token_type":    "Bearer",
				"expires_in":    1, // Inside the oauth2 expiry delta, so never valid.
				"refresh_token": next,
			}))
		}

		client, err := New(env.reg, env.material)
		require.NoError(t, err)

		source := client.TokenSource(context.Background(), "rt-initial")

		first, err := source.Token()
		require.NoError(t, err)
		assert.Equal(t, "rt-rotated-1", first.RefreshToken)

		second, err := source.Token()
		require.NoError(t, err)
		assert.Equal(t, "rt-rotated-2", second.RefreshToken)

		requests := env.recordedTokenRequests()
		require.Len(t, requests, 2)
		assert.Equal(t, "rt-initial", requests[0].Get("refresh_token"))
		assert.Equal(t, "rt-rotated-1", requests[1].Get("refresh_token"),
			"the rotated refresh token must be used for the next refresh")
	})

	t.Run("it errors without a refresh token", func(t *testing.T) {
		env := newTestEnv(t)

		client, err := New(env.reg, env.material)
		require.NoError(t, err)

		source := client.TokenSource(context.Background(), "")
		_, err = source.Token()
		assert.EqualError(t, err, "no refresh token available")
	})
}
