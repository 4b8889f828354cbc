package adapters

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"socialhub/domain/model"
)

// TwitterAdapter speaks Twitter's OAuth2 with PKCE. The code exchange must
// carry the code_verifier minted at authorization time, and the app
// authenticates with HTTP basic auth on the token endpoint.
type TwitterAdapter struct {
	creds      model.PlatformCredentials
	baseURL    string
	httpClient *http.Client
}

func NewTwitterAdapter(creds model.PlatformCredentials) *TwitterAdapter {
	return &TwitterAdapter{
		creds:      creds,
		baseURL:    "https://api.twitter.com/2",
		httpClient: &http.Client{Timeout: httpTimeout},
	}
}

// WithBaseURL overrides the API endpoint, for tests.
func (a *TwitterAdapter) WithBaseURL(base string) *TwitterAdapter {
	a.baseURL = base
	return a
}

func (a *TwitterAdapter) ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*model.OAuthTokenData, error) {
	if codeVerifier == "" {
		return nil, fmt.Errorf("twitter code exchange requires a PKCE code verifier")
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", a.creds.AppID)
	form.Set("code_verifier", codeVerifier)

	tok, err := a.tokenRequest(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("twitter code exchange: %w", err)
	}
	return &model.OAuthTokenData{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
	}, nil
}

func (a *TwitterAdapter) RefreshToken(ctx context.Context, refreshToken string) (*model.OAuthTokenData, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", a.creds.AppID)

	tok, err := a.tokenRequest(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("twitter token refresh: %w", err)
	}
	return &model.OAuthTokenData{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
	}, nil
}

func (a *TwitterAdapter) RevokeToken(ctx context.Context, accessToken string) error {
	form := url.Values{}
	form.Set("token", accessToken)
	form.Set("token_type_hint", "access_token")
	form.Set("client_id", a.creds.AppID)

	resp, err := postForm(ctx, a.httpClient, a.baseURL+"/oauth2/revoke", form, a.basicAuthHeader())
	if err != nil {
		return fmt.Errorf("twitter revoke: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twitter revoke returned %d: %s", resp.StatusCode, extractAPIError(body))
	}
	return nil
}

func (a *TwitterAdapter) tokenRequest(ctx context.Context, form url.Values) (*tokenResponse, error) {
	resp, err := postForm(ctx, a.httpClient, a.baseURL+"/oauth2/token", form, a.basicAuthHeader())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeTokenBody(resp)
}

func (a *TwitterAdapter) basicAuthHeader() http.Header {
	h := http.Header{}
	cred := base64.StdEncoding.EncodeToString([]byte(a.creds.AppID + ":" + a.creds.AppSecret))
	h.Set("Authorization", "Basic "+cred)
	return h
}
