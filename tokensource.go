package oidcmtls

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// TokenSource returns an oauth2.TokenSource backed by this Client's mutual
// TLS connection to the token endpoint. The source refreshes lazily when the
// cached access token expires and follows refresh token rotation when the
// server issues a new one.
func (c *Client) TokenSource(ctx context.Context, refreshToken string) oauth2.TokenSource {
	return &refreshTokenSource{ctx: ctx, client: c, refreshToken: refreshToken}
}

type refreshTokenSource struct {
	ctx    context.Context
	client *Client

	mu           sync.Mutex
	refreshToken string
	current      *oauth2.Token
}

func (s *refreshTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Valid() {
		return s.current, nil
	}
	if s.refreshToken == "" {
		return nil, errors.New("no refresh token available")
	}

	result, err := s.client.Refresh(s.ctx, s.refreshToken)
	if err != nil {
		return nil, err
	}

	tokens := result.Tokens
	token := &oauth2.Token{
		AccessToken:  tokens.AccessToken,
		TokenType:    tokens.TokenType,
		RefreshToken: tokens.RefreshToken,
	}
	if tokens.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second)
	}
	if tokens.RefreshToken != "" {
		s.refreshToken = tokens.RefreshToken
	} else {
		token.RefreshToken = s.refreshToken
	}

	s.current = token
	return token, nil
}
