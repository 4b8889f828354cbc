package model

import "time"

// PlatformCredentials holds the OAuth app configuration used to talk to one
// platform. Resolved per operation from a DB integration row or from static
// configuration; never persisted itself.
type PlatformCredentials struct {
	AppID       string
	AppSecret   string
	RedirectURI string
	APIVersion  string
	Scopes      []string
}

// Empty reports whether no usable app credentials were resolved.
func (c PlatformCredentials) Empty() bool {
	return c.AppID == "" && c.AppSecret == ""
}

// OAuthTokenData is the normalized result of a code exchange or token
// refresh, regardless of the platform's OAuth dialect.
type OAuthTokenData struct {
	AccessToken  string                 `json:"access_token"`
	RefreshToken string                 `json:"refresh_token,omitempty"`
	ExpiresIn    int64                  `json:"expires_in,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// ExpiresAt converts ExpiresIn into an absolute expiry, or nil when the
// platform did not report one.
func (t *OAuthTokenData) ExpiresAt(now time.Time) *time.Time {
	if t.ExpiresIn <= 0 {
		return nil
	}
	exp := now.Add(time.Duration(t.ExpiresIn) * time.Second).UTC()
	return &exp
}
