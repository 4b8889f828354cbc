package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialhub/domain/dto"
	"socialhub/domain/model"
)

// memoryAccounts is an in-memory ISocialAccount with the same upsert
// identity as the SQL repositories.
type memoryAccounts struct {
	nextID   int64
	accounts map[int64]*model.SocialAccount
	tenants  map[int64]int64 // workspaceID -> tenantID
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{nextID: 1, accounts: map[int64]*model.SocialAccount{}, tenants: map[int64]int64{}}
}

func (m *memoryAccounts) Upsert(ctx context.Context, a *model.SocialAccount) (*model.SocialAccount, error) {
	for _, existing := range m.accounts {
		if existing.WorkspaceID == a.WorkspaceID && existing.Platform == a.Platform && existing.PlatformAccountID == a.PlatformAccountID {
			a.ID = existing.ID
			a.CreatedAt = existing.CreatedAt
			cp := *a
			m.accounts[existing.ID] = &cp
			return &cp, nil
		}
	}
	a.ID = m.nextID
	m.nextID++
	cp := *a
	m.accounts[a.ID] = &cp
	return &cp, nil
}

func (m *memoryAccounts) GetByID(ctx context.Context, id int64) (*model.SocialAccount, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *a
	return &cp, nil
}

func (m *memoryAccounts) ListByWorkspace(ctx context.Context, workspaceID int64) ([]*model.SocialAccount, error) {
	var out []*model.SocialAccount
	for id := int64(1); id < m.nextID; id++ {
		if a, ok := m.accounts[id]; ok && a.WorkspaceID == workspaceID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryAccounts) ListByPlatformsAndStatus(ctx context.Context, platforms []model.Platform, statuses []string) ([]*model.SocialAccount, error) {
	var out []*model.SocialAccount
	for id := int64(1); id < m.nextID; id++ {
		a, ok := m.accounts[id]
		if !ok {
			continue
		}
		platformOK := false
		for _, p := range platforms {
			if a.Platform == p {
				platformOK = true
			}
		}
		statusOK := false
		for _, s := range statuses {
			if a.Status == s {
				statusOK = true
			}
		}
		if platformOK && statusOK {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryAccounts) ListExpiring(ctx context.Context, before time.Time) ([]*model.SocialAccount, error) {
	var out []*model.SocialAccount
	for id := int64(1); id < m.nextID; id++ {
		if a, ok := m.accounts[id]; ok && a.Status == model.AccountStatusConnected && a.TokenExpiresAt != nil && !a.TokenExpiresAt.After(before) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryAccounts) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt *time.Time, metadata map[string]interface{}) error {
	a, ok := m.accounts[id]
	if !ok {
		return errors.New("not found")
	}
	a.AccessToken = accessToken
	a.RefreshToken = refreshToken
	a.TokenExpiresAt = expiresAt
	if metadata != nil {
		a.Metadata = metadata
	}
	a.Status = model.AccountStatusConnected
	now := time.Now().UTC()
	a.LastRefreshedAt = &now
	return nil
}

func (m *memoryAccounts) UpdateStatus(ctx context.Context, id int64, status string, metadata map[string]interface{}) error {
	a, ok := m.accounts[id]
	if !ok {
		return errors.New("not found")
	}
	a.Status = status
	if metadata != nil {
		if a.Metadata == nil {
			a.Metadata = map[string]interface{}{}
		}
		for k, v := range metadata {
			a.Metadata[k] = v
		}
	}
	return nil
}

func (m *memoryAccounts) MarkDisconnected(ctx context.Context, id int64, status string, at time.Time) error {
	a, ok := m.accounts[id]
	if !ok {
		return errors.New("not found")
	}
	a.Status = status
	a.DisconnectedAt = &at
	a.AccessToken = ""
	a.RefreshToken = ""
	return nil
}

func (m *memoryAccounts) DistinctTenants(ctx context.Context, accountIDs []int64) ([]int64, error) {
	seen := map[int64]bool{}
	var out []int64
	for _, id := range accountIDs {
		a, ok := m.accounts[id]
		if !ok {
			continue
		}
		tenant := m.tenants[a.WorkspaceID]
		if !seen[tenant] {
			seen[tenant] = true
			out = append(out, tenant)
		}
	}
	return out, nil
}

func connectData(platform, externalID string) *dto.ConnectAccountData {
	return &dto.ConnectAccountData{
		Platform:          platform,
		PlatformAccountID: externalID,
		AccountName:       "Acme Page",
		AccessToken:       "access-token",
		ExpiresIn:         3600,
	}
}

func TestConnectIdempotentReconnect(t *testing.T) {
	repo := newMemoryAccounts()
	oauth, _ := newTestOAuthUsecase(&fakeAdapter{})
	uc := NewSocialAccountUsecase(repo, oauth, nil)
	ctx := context.Background()

	first, err := uc.Connect(ctx, 7, "user-1", connectData("facebook", "page-9"))
	require.NoError(t, err)

	data := connectData("facebook", "page-9")
	data.AccessToken = "rotated-token"
	second, err := uc.Connect(ctx, 7, "user-2", data)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "reconnect must update the existing row")
	assert.Len(t, repo.accounts, 1)
	assert.Equal(t, "rotated-token", repo.accounts[first.ID].AccessToken)

	// A different external account on the same platform gets its own row.
	third, err := uc.Connect(ctx, 7, "user-1", connectData("facebook", "page-10"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestConnectRejectsUnknownPlatform(t *testing.T) {
	uc := NewSocialAccountUsecase(newMemoryAccounts(), nil, nil)
	_, err := uc.Connect(context.Background(), 1, "u", connectData("myspace", "x"))
	assert.Error(t, err)
}

func TestDisconnectSwallowsRevocationFailure(t *testing.T) {
	repo := newMemoryAccounts()
	adapter := &fakeAdapter{err: errors.New("platform unreachable")}
	oauth, _ := newTestOAuthUsecase(adapter)
	uc := NewSocialAccountUsecase(repo, oauth, nil)
	ctx := context.Background()

	account, err := uc.Connect(ctx, 1, "u", connectData("linkedin", "urn:li:123"))
	require.NoError(t, err)

	require.NoError(t, uc.Disconnect(ctx, account.ID, true),
		"local disconnect must succeed even when remote revocation fails")

	stored := repo.accounts[account.ID]
	assert.Equal(t, model.AccountStatusDisconnected, stored.Status)
	assert.NotNil(t, stored.DisconnectedAt)
	assert.Empty(t, stored.AccessToken)
}

func TestDisconnectWithSuccessfulRevoke(t *testing.T) {
	repo := newMemoryAccounts()
	adapter := &fakeAdapter{}
	oauth, _ := newTestOAuthUsecase(adapter)
	uc := NewSocialAccountUsecase(repo, oauth, nil)
	ctx := context.Background()

	account, err := uc.Connect(ctx, 1, "u", connectData("facebook", "page-1"))
	require.NoError(t, err)

	require.NoError(t, uc.Disconnect(ctx, account.ID, true))
	assert.Equal(t, "access-token", adapter.revokedWith)
	assert.Equal(t, model.AccountStatusRevoked, repo.accounts[account.ID].Status)
}

func TestRefreshFailureFlipsTokenExpired(t *testing.T) {
	repo := newMemoryAccounts()
	adapter := &fakeAdapter{err: errors.New("invalid_grant")}
	oauth, _ := newTestOAuthUsecase(adapter)
	uc := NewSocialAccountUsecase(repo, oauth, nil)
	ctx := context.Background()

	account, err := uc.Connect(ctx, 1, "u", &dto.ConnectAccountData{
		Platform:          "linkedin",
		PlatformAccountID: "urn:li:9",
		AccessToken:       "tok",
		RefreshToken:      "refresh",
	})
	require.NoError(t, err)

	_, err = uc.Refresh(ctx, account.ID)
	assert.Error(t, err)
	assert.Equal(t, model.AccountStatusTokenExpired, repo.accounts[account.ID].Status)
}

func TestRefreshWritesBackTokensAndMetadata(t *testing.T) {
	repo := newMemoryAccounts()
	adapter := &fakeAdapter{result: &model.OAuthTokenData{
		AccessToken: "fresh",
		ExpiresIn:   7200,
		Metadata:    map[string]interface{}{"user_token": "fresh-user"},
	}}
	oauth, _ := newTestOAuthUsecase(adapter)
	uc := NewSocialAccountUsecase(repo, oauth, nil)
	ctx := context.Background()

	account, err := uc.Connect(ctx, 1, "u", &dto.ConnectAccountData{
		Platform:          "facebook",
		PlatformAccountID: "page-1",
		AccessToken:       "stale",
		Metadata:          map[string]interface{}{"user_token": "old-user", "page_name": "Acme"},
	})
	require.NoError(t, err)

	refreshed, err := uc.Refresh(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "fresh", refreshed.AccessToken)
	assert.NotNil(t, refreshed.TokenExpiresAt)
	assert.NotNil(t, refreshed.LastRefreshedAt)
	assert.Equal(t, "fresh-user", refreshed.Metadata["user_token"])
	assert.Equal(t, "Acme", refreshed.Metadata["page_name"], "unrelated metadata survives a refresh")
}

func TestHealthStatus(t *testing.T) {
	repo := newMemoryAccounts()
	oauth, _ := newTestOAuthUsecase(&fakeAdapter{})
	uc := NewSocialAccountUsecase(repo, oauth, nil)
	ctx := context.Background()

	a1, err := uc.Connect(ctx, 5, "u", connectData("facebook", "p1"))
	require.NoError(t, err)
	_, err = uc.Connect(ctx, 5, "u", connectData("linkedin", "p2"))
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(ctx, a1.ID, model.AccountStatusTokenExpired, nil))

	// Another workspace must not leak into the report.
	_, err = uc.Connect(ctx, 6, "u", connectData("youtube", "p3"))
	require.NoError(t, err)

	health, err := uc.HealthStatus(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), health.Total)
	assert.Equal(t, int64(1), health.ByStatus[model.AccountStatusConnected])
	assert.Equal(t, int64(1), health.ByStatus[model.AccountStatusTokenExpired])
	assert.Equal(t, int64(1), health.ExpiringSoon, "one-hour expiry falls inside the attention window")
}
