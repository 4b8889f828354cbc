package dto

// AuthorizationURL is returned when initiating an OAuth connection attempt.
type AuthorizationURL struct {
	URL      string `json:"url"`
	State    string `json:"state"`
	Platform string `json:"platform"`
}

// ConnectAccountData carries everything needed to persist a connected
// account after a successful code exchange.
type ConnectAccountData struct {
	Platform          string                 `json:"platform" binding:"required"`
	PlatformAccountID string                 `json:"platform_account_id" binding:"required"`
	AccountName       string                 `json:"account_name"`
	AccountUsername   string                 `json:"account_username"`
	ProfileImageURL   string                 `json:"profile_image_url"`
	AccessToken       string                 `json:"access_token" binding:"required"`
	RefreshToken      string                 `json:"refresh_token"`
	ExpiresIn         int64                  `json:"expires_in"`
	Metadata          map[string]interface{} `json:"metadata"`
}

// ForceReauthResult summarizes an administrative bulk revocation.
type ForceReauthResult struct {
	AccountsRevoked int64 `json:"accounts_revoked"`
	TenantsAffected int64 `json:"tenants_affected"`
	TenantsNotified int64 `json:"tenants_notified"`
}

// WorkspaceHealth summarizes connection health for one workspace.
type WorkspaceHealth struct {
	WorkspaceID  int64            `json:"workspace_id"`
	Total        int64            `json:"total"`
	ByStatus     map[string]int64 `json:"by_status"`
	ExpiringSoon int64            `json:"expiring_soon"`
}
