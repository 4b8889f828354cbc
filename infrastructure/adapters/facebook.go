package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"socialhub/domain/model"
)

// FacebookAdapter speaks the Graph API's query-parameter style OAuth: both
// the code exchange and the long-lived exchange are GETs against
// /oauth/access_token. RefreshToken performs the short-lived to long-lived
// token exchange (grant_type=fb_exchange_token) because Facebook user
// tokens are re-derived, not refreshed.
type FacebookAdapter struct {
	creds      model.PlatformCredentials
	baseURL    string
	httpClient *http.Client
}

func NewFacebookAdapter(creds model.PlatformCredentials) *FacebookAdapter {
	version := creds.APIVersion
	if version == "" {
		version = "v19.0"
	}
	return &FacebookAdapter{
		creds:      creds,
		baseURL:    "https://graph.facebook.com/" + version,
		httpClient: &http.Client{Timeout: httpTimeout},
	}
}

// WithBaseURL overrides the Graph endpoint, for tests.
func (a *FacebookAdapter) WithBaseURL(base string) *FacebookAdapter {
	a.baseURL = base
	return a
}

func (a *FacebookAdapter) ExchangeCode(ctx context.Context, code, redirectURI, _ string) (*model.OAuthTokenData, error) {
	q := url.Values{}
	q.Set("client_id", a.creds.AppID)
	q.Set("client_secret", a.creds.AppSecret)
	q.Set("redirect_uri", redirectURI)
	q.Set("code", code)

	tok, err := a.tokenRequest(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("facebook code exchange: %w", err)
	}
	// Immediately trade the short-lived user token for a long-lived one so
	// the caller never stores a token that dies within hours.
	long, err := a.longLivedExchange(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("facebook long-lived exchange: %w", err)
	}
	return &model.OAuthTokenData{
		AccessToken: long.AccessToken,
		ExpiresIn:   long.ExpiresIn,
		Metadata: map[string]interface{}{
			"user_token":            long.AccessToken,
			"user_token_expires_in": long.ExpiresIn,
		},
	}, nil
}

func (a *FacebookAdapter) RefreshToken(ctx context.Context, userToken string) (*model.OAuthTokenData, error) {
	long, err := a.longLivedExchange(ctx, userToken)
	if err != nil {
		return nil, fmt.Errorf("facebook long-lived exchange: %w", err)
	}
	return &model.OAuthTokenData{
		AccessToken: long.AccessToken,
		ExpiresIn:   long.ExpiresIn,
		Metadata: map[string]interface{}{
			"user_token":            long.AccessToken,
			"user_token_expires_in": long.ExpiresIn,
		},
	}, nil
}

func (a *FacebookAdapter) RevokeToken(ctx context.Context, accessToken string) error {
	endpoint := fmt.Sprintf("%s/me/permissions?access_token=%s", a.baseURL, url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("facebook revoke: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("facebook revoke returned %d: %s", resp.StatusCode, extractAPIError(body))
	}
	return nil
}

func (a *FacebookAdapter) longLivedExchange(ctx context.Context, shortToken string) (*tokenResponse, error) {
	q := url.Values{}
	q.Set("grant_type", "fb_exchange_token")
	q.Set("client_id", a.creds.AppID)
	q.Set("client_secret", a.creds.AppSecret)
	q.Set("fb_exchange_token", shortToken)
	return a.tokenRequest(ctx, q)
}

func (a *FacebookAdapter) tokenRequest(ctx context.Context, q url.Values) (*tokenResponse, error) {
	endpoint := fmt.Sprintf("%s/oauth/access_token?%s", a.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeTokenBody(resp)
}
