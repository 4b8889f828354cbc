package model

import "time"

// Social account status values.
const (
	AccountStatusConnected    = "connected"
	AccountStatusTokenExpired = "token_expired"
	AccountStatusRevoked      = "revoked"
	AccountStatusDisconnected = "disconnected"
)

// SocialAccount represents one connected external account (a Facebook Page,
// an Instagram Business account, a LinkedIn profile, ...) bound to exactly
// one workspace. Token columns are encrypted at rest by the persistence
// layer; this struct carries whatever the repository hands back and its
// values must never be logged.
type SocialAccount struct {
	ID                int64                  `json:"id"`
	WorkspaceID       int64                  `json:"workspace_id"`
	Platform          Platform               `json:"platform"`
	PlatformAccountID string                 `json:"platform_account_id"`
	AccountName       string                 `json:"account_name"`
	AccountUsername   string                 `json:"account_username"`
	ProfileImageURL   string                 `json:"profile_image_url"`
	Status            string                 `json:"status"`
	AccessToken       string                 `json:"-"`
	RefreshToken      string                 `json:"-"`
	TokenExpiresAt    *time.Time             `json:"token_expires_at,omitempty"`
	ConnectedByUserID string                 `json:"connected_by_user_id"`
	ConnectedAt       time.Time              `json:"connected_at"`
	LastRefreshedAt   *time.Time             `json:"last_refreshed_at,omitempty"`
	DisconnectedAt    *time.Time             `json:"disconnected_at,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// TokenValid reports whether the stored access token is usable: the account
// must be connected and the expiry, when known, must be in the future.
func (a *SocialAccount) TokenValid(now time.Time) bool {
	if a.Status != AccountStatusConnected || a.AccessToken == "" {
		return false
	}
	if a.TokenExpiresAt != nil && !a.TokenExpiresAt.After(now) {
		return false
	}
	return true
}

// MetadataString returns a string metadata value, or "" when absent.
func (a *SocialAccount) MetadataString(key string) string {
	if a.Metadata == nil {
		return ""
	}
	if v, ok := a.Metadata[key].(string); ok {
		return v
	}
	return ""
}
