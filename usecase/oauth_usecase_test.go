package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialhub/domain/model"
	"socialhub/domain/repository"
	"socialhub/infrastructure/cache"
)

type staticResolver struct {
	creds model.PlatformCredentials
}

func (r *staticResolver) Resolve(ctx context.Context, platform model.Platform) (model.PlatformCredentials, error) {
	return r.creds, nil
}

// fakeAdapter records what the usecase forwards to the platform adapter.
type fakeAdapter struct {
	exchangeCode     string
	exchangeRedirect string
	exchangeVerifier string
	refreshedWith    string
	revokedWith      string
	result           *model.OAuthTokenData
	err              error
}

func (a *fakeAdapter) ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*model.OAuthTokenData, error) {
	a.exchangeCode, a.exchangeRedirect, a.exchangeVerifier = code, redirectURI, codeVerifier
	return a.result, a.err
}

func (a *fakeAdapter) RefreshToken(ctx context.Context, refreshToken string) (*model.OAuthTokenData, error) {
	a.refreshedWith = refreshToken
	return a.result, a.err
}

func (a *fakeAdapter) RevokeToken(ctx context.Context, accessToken string) error {
	a.revokedWith = accessToken
	return a.err
}

func newTestOAuthUsecase(adapter *fakeAdapter) (IOAuthUsecase, repository.IStateStore) {
	states := cache.NewMemoryStateStore()
	resolver := &staticResolver{creds: model.PlatformCredentials{
		AppID:       "app-id",
		AppSecret:   "app-secret",
		RedirectURI: "https://hub.example.com/api/v1/oauth/facebook/callback",
		Scopes:      []string{"scope_a", "scope_b"},
	}}
	uc := NewOAuthUsecaseWithFactory(resolver, states, func(p model.Platform, c model.PlatformCredentials) (repository.ISocialPlatformAdapter, error) {
		return adapter, nil
	})
	return uc, states
}

func TestGetAuthorizationURLCachesState(t *testing.T) {
	uc, states := newTestOAuthUsecase(&fakeAdapter{})
	ctx := context.Background()

	out, err := uc.GetAuthorizationURL(ctx, model.PlatformFacebook, "state-1")
	require.NoError(t, err)
	assert.Equal(t, "state-1", out.State)
	assert.Equal(t, "facebook", out.Platform)
	assert.Contains(t, out.URL, "www.facebook.com")
	assert.Contains(t, out.URL, "client_id=app-id")
	assert.Contains(t, out.URL, "response_type=code")

	cached, err := states.Consume(ctx, "oauth_state:state-1")
	require.NoError(t, err)
	assert.Contains(t, cached, `"platform":"facebook"`)
}

func TestGetAuthorizationURLTwitterPKCE(t *testing.T) {
	uc, states := newTestOAuthUsecase(&fakeAdapter{})
	ctx := context.Background()

	out, err := uc.GetAuthorizationURL(ctx, model.PlatformTwitter, "state-tw")
	require.NoError(t, err)

	parsed, err := url.Parse(out.URL)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	challenge := q.Get("code_challenge")
	require.NotEmpty(t, challenge)

	verifier, err := states.Consume(ctx, "twitter_code_verifier:state-tw")
	require.NoError(t, err)
	sum := sha256.Sum256([]byte(verifier))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), challenge,
		"challenge must be the S256 hash of the cached verifier")
}

func TestGetAuthorizationURLYouTubeOfflineAccess(t *testing.T) {
	uc, _ := newTestOAuthUsecase(&fakeAdapter{})

	out, err := uc.GetAuthorizationURL(context.Background(), model.PlatformYouTube, "state-yt")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.URL, "https://accounts.google.com/o/oauth2/v2/auth?"))
	assert.Contains(t, out.URL, "access_type=offline")
	assert.Contains(t, out.URL, "prompt=consent")
}

func TestHandleCallbackStateSingleUse(t *testing.T) {
	adapter := &fakeAdapter{result: &model.OAuthTokenData{AccessToken: "tok"}}
	uc, _ := newTestOAuthUsecase(adapter)
	ctx := context.Background()

	_, err := uc.GetAuthorizationURL(ctx, model.PlatformFacebook, "state-2")
	require.NoError(t, err)

	tok, err := uc.HandleCallback(ctx, model.PlatformFacebook, "the-code", "state-2")
	require.NoError(t, err)
	assert.Equal(t, "tok", tok.AccessToken)
	assert.Equal(t, "the-code", adapter.exchangeCode)

	_, err = uc.HandleCallback(ctx, model.PlatformFacebook, "the-code", "state-2")
	assert.ErrorIs(t, err, ErrInvalidState, "a state value is consumed exactly once")
}

func TestHandleCallbackUnknownState(t *testing.T) {
	uc, _ := newTestOAuthUsecase(&fakeAdapter{})
	_, err := uc.HandleCallback(context.Background(), model.PlatformFacebook, "code", "never-minted")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestHandleCallbackPlatformMismatch(t *testing.T) {
	adapter := &fakeAdapter{result: &model.OAuthTokenData{AccessToken: "tok"}}
	uc, _ := newTestOAuthUsecase(adapter)
	ctx := context.Background()

	_, err := uc.GetAuthorizationURL(ctx, model.PlatformFacebook, "state-3")
	require.NoError(t, err)

	_, err = uc.HandleCallback(ctx, model.PlatformLinkedIn, "code", "state-3")
	assert.ErrorIs(t, err, ErrPlatformMismatch)

	// The mismatch burned the state; retrying on the right platform fails too.
	_, err = uc.HandleCallback(ctx, model.PlatformFacebook, "code", "state-3")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestHandleCallbackForwardsTwitterVerifier(t *testing.T) {
	adapter := &fakeAdapter{result: &model.OAuthTokenData{AccessToken: "tok"}}
	uc, states := newTestOAuthUsecase(adapter)
	ctx := context.Background()

	_, err := uc.GetAuthorizationURL(ctx, model.PlatformTwitter, "state-4")
	require.NoError(t, err)

	_, err = uc.HandleCallback(ctx, model.PlatformTwitter, "code", "state-4")
	require.NoError(t, err)
	assert.NotEmpty(t, adapter.exchangeVerifier, "cached PKCE verifier must be forwarded to the adapter")

	_, err = states.Consume(ctx, "twitter_code_verifier:state-4")
	assert.Error(t, err, "verifier entry must be consumed along with the state")
}

func TestRefreshTokenWithStoredRefreshToken(t *testing.T) {
	adapter := &fakeAdapter{result: &model.OAuthTokenData{AccessToken: "new", RefreshToken: "next"}}
	uc, _ := newTestOAuthUsecase(adapter)

	account := &model.SocialAccount{Platform: model.PlatformLinkedIn, RefreshToken: "stored-refresh"}
	tok, err := uc.RefreshToken(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, "new", tok.AccessToken)
	assert.Equal(t, "stored-refresh", adapter.refreshedWith)
}

func TestRefreshTokenFacebookLongLivedExchange(t *testing.T) {
	adapter := &fakeAdapter{result: &model.OAuthTokenData{
		AccessToken: "long-lived",
		Metadata:    map[string]interface{}{"user_token": "long-lived"},
	}}
	uc, _ := newTestOAuthUsecase(adapter)

	account := &model.SocialAccount{
		Platform:    model.PlatformFacebook,
		AccessToken: "page-token",
		Metadata:    map[string]interface{}{"user_token": "old-user-token"},
	}
	tok, err := uc.RefreshToken(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, "long-lived", tok.AccessToken)
	assert.Equal(t, "old-user-token", adapter.refreshedWith,
		"the stored user token seeds the long-lived exchange, not the page token")
}

func TestRefreshTokenNoRefreshTokenAvailable(t *testing.T) {
	uc, _ := newTestOAuthUsecase(&fakeAdapter{})

	for _, platform := range []model.Platform{model.PlatformLinkedIn, model.PlatformTwitter, model.PlatformYouTube, model.PlatformWhatsApp} {
		account := &model.SocialAccount{Platform: platform, AccessToken: "tok"}
		_, err := uc.RefreshToken(context.Background(), account)
		assert.ErrorIs(t, err, ErrNoRefreshToken, "platform %s", platform)
	}
}

func TestValidateToken(t *testing.T) {
	uc, _ := newTestOAuthUsecase(&fakeAdapter{})

	assert.False(t, uc.ValidateToken(nil))
	assert.False(t, uc.ValidateToken(&model.SocialAccount{Status: model.AccountStatusTokenExpired, AccessToken: "t"}))
	assert.True(t, uc.ValidateToken(&model.SocialAccount{Status: model.AccountStatusConnected, AccessToken: "t"}))
}
