package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"socialhub/domain/dto"
	"socialhub/domain/model"
	"socialhub/domain/repository"
	"socialhub/infrastructure/adapters"
	"socialhub/infrastructure/cache"
	"socialhub/infrastructure/logger"
)

// Orchestration-level contract violations. These halt the flow and map to
// 4xx at the handler layer, unlike platform call failures which come back
// as structured results.
var (
	ErrInvalidState     = errors.New("invalid or expired oauth state")
	ErrPlatformMismatch = errors.New("oauth state was issued for a different platform")
	ErrNoRefreshToken   = errors.New("no refresh token available for this account")
	ErrAccountNotFound  = errors.New("social account not found")
)

const (
	stateTTLSeconds = 600

	stateKeyPrefix    = "oauth_state"
	verifierKeyPrefix = "twitter_code_verifier"
)

type IOAuthUsecase interface {
	GetAuthorizationURL(ctx context.Context, platform model.Platform, state string) (*dto.AuthorizationURL, error)
	HandleCallback(ctx context.Context, platform model.Platform, code, state string) (*model.OAuthTokenData, error)
	RefreshToken(ctx context.Context, account *model.SocialAccount) (*model.OAuthTokenData, error)
	RevokeToken(ctx context.Context, account *model.SocialAccount) error
	ValidateToken(account *model.SocialAccount) bool
}

// adapterFactory builds the OAuth adapter for a platform; swapped in tests.
type adapterFactory func(platform model.Platform, creds model.PlatformCredentials) (repository.ISocialPlatformAdapter, error)

type oauthUsecase struct {
	resolver   ICredentialResolver
	states     repository.IStateStore
	newAdapter adapterFactory
}

func NewOAuthUsecase(resolver ICredentialResolver, states repository.IStateStore) IOAuthUsecase {
	return &oauthUsecase{resolver: resolver, states: states, newAdapter: adapters.NewAdapter}
}

// NewOAuthUsecaseWithFactory injects the adapter factory, for tests.
func NewOAuthUsecaseWithFactory(resolver ICredentialResolver, states repository.IStateStore, factory adapterFactory) IOAuthUsecase {
	return &oauthUsecase{resolver: resolver, states: states, newAdapter: factory}
}

// GetAuthorizationURL caches the anti-CSRF state, mints the PKCE pair for
// Twitter, and builds the platform's authorize URL.
func (u *oauthUsecase) GetAuthorizationURL(ctx context.Context, platform model.Platform, state string) (*dto.AuthorizationURL, error) {
	if state == "" {
		return nil, fmt.Errorf("state must not be empty")
	}
	creds, err := u.resolver.Resolve(ctx, platform)
	if err != nil {
		return nil, err
	}

	entry, err := json.Marshal(model.OAuthState{Platform: platform, CreatedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	if err := u.states.Put(ctx, stateKeyPrefix+":"+state, string(entry), stateTTLSeconds); err != nil {
		return nil, fmt.Errorf("cache oauth state: %w", err)
	}

	var challenge string
	if platform == model.PlatformTwitter {
		verifier, err := generateCodeVerifier()
		if err != nil {
			return nil, err
		}
		if err := u.states.Put(ctx, verifierKeyPrefix+":"+state, verifier, stateTTLSeconds); err != nil {
			return nil, fmt.Errorf("cache code verifier: %w", err)
		}
		sum := sha256.Sum256([]byte(verifier))
		challenge = base64.RawURLEncoding.EncodeToString(sum[:])
	}

	authorizeURL, err := buildAuthorizeURL(platform, creds, state, challenge)
	if err != nil {
		return nil, err
	}
	logger.GetLogger().
		WithField("platform", platform).
		Info("Authorization URL issued")
	return &dto.AuthorizationURL{URL: authorizeURL, State: state, Platform: string(platform)}, nil
}

// HandleCallback consumes the cached state (single use), verifies the
// platform binding and exchanges the code through the platform adapter.
func (u *oauthUsecase) HandleCallback(ctx context.Context, platform model.Platform, code, state string) (*model.OAuthTokenData, error) {
	raw, err := u.states.Consume(ctx, stateKeyPrefix+":"+state)
	if err != nil {
		if errors.Is(err, cache.ErrStateNotFound) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("consume oauth state: %w", err)
	}
	var cached model.OAuthState
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, ErrInvalidState
	}
	if cached.Platform != platform {
		return nil, ErrPlatformMismatch
	}

	var verifier string
	if platform == model.PlatformTwitter {
		verifier, err = u.states.Consume(ctx, verifierKeyPrefix+":"+state)
		if err != nil {
			if errors.Is(err, cache.ErrStateNotFound) {
				return nil, ErrInvalidState
			}
			return nil, fmt.Errorf("consume code verifier: %w", err)
		}
	}

	creds, err := u.resolver.Resolve(ctx, platform)
	if err != nil {
		return nil, err
	}
	adapter, err := u.newAdapter(platform, creds)
	if err != nil {
		return nil, err
	}
	tok, err := adapter.ExchangeCode(ctx, code, creds.RedirectURI, verifier)
	if err != nil {
		return nil, err
	}
	logger.GetLogger().
		WithField("platform", platform).
		Info("Authorization code exchanged")
	return tok, nil
}

// RefreshToken branches on platform: Facebook-family tokens are re-derived
// through the long-lived exchange (seeded from metadata.user_token when the
// access token itself is gone), other platforms need a stored refresh token.
func (u *oauthUsecase) RefreshToken(ctx context.Context, account *model.SocialAccount) (*model.OAuthTokenData, error) {
	if account == nil {
		return nil, ErrAccountNotFound
	}
	creds, err := u.resolver.Resolve(ctx, account.Platform)
	if err != nil {
		return nil, err
	}
	adapter, err := u.newAdapter(account.Platform, creds)
	if err != nil {
		return nil, err
	}

	if account.RefreshToken != "" {
		return adapter.RefreshToken(ctx, account.RefreshToken)
	}

	if account.Platform == model.PlatformFacebook || account.Platform == model.PlatformInstagram {
		seed := account.MetadataString("user_token")
		if seed == "" {
			seed = account.AccessToken
		}
		if seed == "" {
			return nil, ErrNoRefreshToken
		}
		return adapter.RefreshToken(ctx, seed)
	}

	return nil, ErrNoRefreshToken
}

// RevokeToken is best effort; callers disconnecting an account swallow the
// error so local state wins over remote availability.
func (u *oauthUsecase) RevokeToken(ctx context.Context, account *model.SocialAccount) error {
	if account == nil || account.AccessToken == "" {
		return nil
	}
	creds, err := u.resolver.Resolve(ctx, account.Platform)
	if err != nil {
		return err
	}
	adapter, err := u.newAdapter(account.Platform, creds)
	if err != nil {
		return err
	}
	return adapter.RevokeToken(ctx, account.AccessToken)
}

func (u *oauthUsecase) ValidateToken(account *model.SocialAccount) bool {
	if account == nil {
		return false
	}
	return account.TokenValid(time.Now().UTC())
}

// generateCodeVerifier mints 64 random bytes, base64url-encoded per RFC 7636.
func generateCodeVerifier() (string, error) {
	buf := make([]byte, 64)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func buildAuthorizeURL(platform model.Platform, creds model.PlatformCredentials, state, challenge string) (string, error) {
	q := url.Values{}
	q.Set("client_id", creds.AppID)
	q.Set("redirect_uri", creds.RedirectURI)
	q.Set("response_type", "code")
	q.Set("state", state)

	switch platform {
	case model.PlatformFacebook, model.PlatformInstagram, model.PlatformWhatsApp:
		version := creds.APIVersion
		if version == "" {
			version = "v19.0"
		}
		q.Set("scope", strings.Join(creds.Scopes, ","))
		return fmt.Sprintf("https://www.facebook.com/%s/dialog/oauth?%s", version, q.Encode()), nil
	case model.PlatformLinkedIn:
		q.Set("scope", strings.Join(creds.Scopes, " "))
		return "https://www.linkedin.com/oauth/v2/authorization?" + q.Encode(), nil
	case model.PlatformTwitter:
		q.Set("scope", strings.Join(creds.Scopes, " "))
		q.Set("code_challenge", challenge)
		q.Set("code_challenge_method", "S256")
		return "https://twitter.com/i/oauth2/authorize?" + q.Encode(), nil
	case model.PlatformYouTube:
		q.Set("scope", strings.Join(creds.Scopes, " "))
		q.Set("access_type", "offline")
		q.Set("prompt", "consent")
		return "https://accounts.google.com/o/oauth2/v2/auth?" + q.Encode(), nil
	}
	return "", fmt.Errorf("no authorize URL template for platform: %s", platform)
}
