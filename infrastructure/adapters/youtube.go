package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"socialhub/domain/model"
)

// YouTubeAdapter rides Google's OAuth2 endpoint via golang.org/x/oauth2.
// Refresh tokens are only issued when the authorize URL carried
// access_type=offline and prompt=consent; the OAuth usecase takes care of
// that when building the URL.
type YouTubeAdapter struct {
	config    *oauth2.Config
	revokeURL string
}

func NewYouTubeAdapter(creds model.PlatformCredentials) *YouTubeAdapter {
	return &YouTubeAdapter{
		config: &oauth2.Config{
			ClientID:     creds.AppID,
			ClientSecret: creds.AppSecret,
			RedirectURL:  creds.RedirectURI,
			Scopes:       creds.Scopes,
			Endpoint:     google.Endpoint,
		},
		revokeURL: "https://oauth2.googleapis.com/revoke",
	}
}

// WithEndpoints overrides the token and revoke endpoints, for tests.
func (a *YouTubeAdapter) WithEndpoints(tokenURL, revokeURL string) *YouTubeAdapter {
	a.config.Endpoint = oauth2.Endpoint{AuthURL: a.config.Endpoint.AuthURL, TokenURL: tokenURL}
	a.revokeURL = revokeURL
	return a
}

func (a *YouTubeAdapter) ExchangeCode(ctx context.Context, code, redirectURI, _ string) (*model.OAuthTokenData, error) {
	cfg := *a.config
	if redirectURI != "" {
		cfg.RedirectURL = redirectURI
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("youtube code exchange: %w", err)
	}
	return fromOAuth2Token(tok), nil
}

func (a *YouTubeAdapter) RefreshToken(ctx context.Context, refreshToken string) (*model.OAuthTokenData, error) {
	src := a.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("youtube token refresh: %w", err)
	}
	data := fromOAuth2Token(tok)
	// Google does not rotate the refresh token on every refresh; keep the
	// one we already hold when the response omits it.
	if data.RefreshToken == "" {
		data.RefreshToken = refreshToken
	}
	return data, nil
}

func (a *YouTubeAdapter) RevokeToken(ctx context.Context, accessToken string) error {
	form := url.Values{}
	form.Set("token", accessToken)
	client := &http.Client{Timeout: httpTimeout}
	resp, err := postForm(ctx, client, a.revokeURL, form, nil)
	if err != nil {
		return fmt.Errorf("youtube revoke: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("youtube revoke returned %d: %s", resp.StatusCode, extractAPIError(body))
	}
	return nil
}

func fromOAuth2Token(tok *oauth2.Token) *model.OAuthTokenData {
	var expiresIn int64
	if !tok.Expiry.IsZero() {
		expiresIn = int64(time.Until(tok.Expiry).Seconds())
	}
	return &model.OAuthTokenData{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn,
	}
}
