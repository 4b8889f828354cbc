package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"socialhub/domain/model"
)

// LinkedInAdapter speaks LinkedIn's POST-form OAuth2 endpoints. LinkedIn
// issues real refresh tokens (programmatic refresh must be enabled on the
// app), so RefreshToken is an ordinary refresh_token grant.
type LinkedInAdapter struct {
	creds      model.PlatformCredentials
	baseURL    string
	httpClient *http.Client
}

func NewLinkedInAdapter(creds model.PlatformCredentials) *LinkedInAdapter {
	return &LinkedInAdapter{
		creds:      creds,
		baseURL:    "https://www.linkedin.com/oauth/v2",
		httpClient: &http.Client{Timeout: httpTimeout},
	}
}

// WithBaseURL overrides the OAuth endpoint, for tests.
func (a *LinkedInAdapter) WithBaseURL(base string) *LinkedInAdapter {
	a.baseURL = base
	return a
}

func (a *LinkedInAdapter) ExchangeCode(ctx context.Context, code, redirectURI, _ string) (*model.OAuthTokenData, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", a.creds.AppID)
	form.Set("client_secret", a.creds.AppSecret)

	tok, err := a.tokenRequest(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("linkedin code exchange: %w", err)
	}
	return &model.OAuthTokenData{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
	}, nil
}

func (a *LinkedInAdapter) RefreshToken(ctx context.Context, refreshToken string) (*model.OAuthTokenData, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", a.creds.AppID)
	form.Set("client_secret", a.creds.AppSecret)

	tok, err := a.tokenRequest(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("linkedin token refresh: %w", err)
	}
	return &model.OAuthTokenData{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
	}, nil
}

func (a *LinkedInAdapter) RevokeToken(ctx context.Context, accessToken string) error {
	form := url.Values{}
	form.Set("token", accessToken)
	form.Set("client_id", a.creds.AppID)
	form.Set("client_secret", a.creds.AppSecret)

	resp, err := postForm(ctx, a.httpClient, a.baseURL+"/revoke", form, nil)
	if err != nil {
		return fmt.Errorf("linkedin revoke: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("linkedin revoke returned %d: %s", resp.StatusCode, extractAPIError(body))
	}
	return nil
}

func (a *LinkedInAdapter) tokenRequest(ctx context.Context, form url.Values) (*tokenResponse, error) {
	resp, err := postForm(ctx, a.httpClient, a.baseURL+"/accessToken", form, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeTokenBody(resp)
}
