package repository

import (
	"context"

	"socialhub/domain/model"
)

// ISocialPlatformAdapter normalizes six OAuth dialects behind one shape:
// Facebook/Instagram's GET-with-query token endpoints, LinkedIn/Twitter's
// POST-form exchange and Google's OAuth2 endpoint for YouTube.
//
// codeVerifier is the PKCE verifier minted at authorization time; adapters
// for platforms that do not use PKCE ignore it.
type ISocialPlatformAdapter interface {
	ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*model.OAuthTokenData, error)
	RefreshToken(ctx context.Context, refreshToken string) (*model.OAuthTokenData, error)
	RevokeToken(ctx context.Context, accessToken string) error
}

// IStateStore is the short-lived cache backing the OAuth anti-CSRF state
// and the Twitter PKCE verifier. Consume is get-and-delete so a state value
// can be used at most once.
type IStateStore interface {
	Put(ctx context.Context, key, value string, ttlSeconds int) error
	Consume(ctx context.Context, key string) (string, error)
}

// IRateLimiter gates outbound platform calls with a fixed hourly window
// shared across all workspaces using the same platform app.
type IRateLimiter interface {
	Attempt(ctx context.Context, key string) (bool, error)
}
