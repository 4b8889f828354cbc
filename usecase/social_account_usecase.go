package usecase

import (
	"context"
	"time"

	"socialhub/domain/dto"
	"socialhub/domain/model"
	"socialhub/domain/repository"
	"socialhub/infrastructure/logger"
)

// expiringSoonWindow is how far ahead HealthStatus and ExpiringTokens look
// for tokens that need attention.
const expiringSoonWindow = 7 * 24 * time.Hour

type ISocialAccountUsecase interface {
	Connect(ctx context.Context, workspaceID int64, userID string, data *dto.ConnectAccountData) (*model.SocialAccount, error)
	Disconnect(ctx context.Context, accountID int64, revoke bool) error
	Refresh(ctx context.Context, accountID int64) (*model.SocialAccount, error)
	GetByID(ctx context.Context, accountID int64) (*model.SocialAccount, error)
	ListByWorkspace(ctx context.Context, workspaceID int64) ([]*model.SocialAccount, error)
	HealthStatus(ctx context.Context, workspaceID int64) (*dto.WorkspaceHealth, error)
	ExpiringTokens(ctx context.Context, within time.Duration) ([]*model.SocialAccount, error)
}

type socialAccountUsecase struct {
	accounts repository.ISocialAccount
	oauth    IOAuthUsecase
	audit    repository.IAudit
}

func NewSocialAccountUsecase(accounts repository.ISocialAccount, oauth IOAuthUsecase, audit repository.IAudit) ISocialAccountUsecase {
	return &socialAccountUsecase{accounts: accounts, oauth: oauth, audit: audit}
}

// Connect persists a connected account. Reconnecting an external account
// already known to the workspace updates the existing row; the repository
// upsert keys on (workspace_id, platform, platform_account_id).
func (u *socialAccountUsecase) Connect(ctx context.Context, workspaceID int64, userID string, data *dto.ConnectAccountData) (*model.SocialAccount, error) {
	platform, err := model.ParsePlatform(data.Platform)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	account := &model.SocialAccount{
		WorkspaceID:       workspaceID,
		Platform:          platform,
		PlatformAccountID: data.PlatformAccountID,
		AccountName:       data.AccountName,
		AccountUsername:   data.AccountUsername,
		ProfileImageURL:   data.ProfileImageURL,
		Status:            model.AccountStatusConnected,
		AccessToken:       data.AccessToken,
		RefreshToken:      data.RefreshToken,
		ConnectedByUserID: userID,
		ConnectedAt:       now,
		Metadata:          data.Metadata,
	}
	if data.ExpiresIn > 0 {
		exp := now.Add(time.Duration(data.ExpiresIn) * time.Second)
		account.TokenExpiresAt = &exp
	}

	saved, err := u.accounts.Upsert(ctx, account)
	if err != nil {
		return nil, err
	}
	u.appendAudit(ctx, &model.AuditEntry{
		Action:      "account_connected",
		Platform:    string(platform),
		WorkspaceID: workspaceID,
		AccountID:   saved.ID,
		ActorID:     userID,
	})
	logger.GetLogger().
		WithField("platform", platform).
		WithField("workspaceID", workspaceID).
		WithField("accountID", saved.ID).
		Info("Social account connected")
	return saved, nil
}

// Disconnect soft-removes the account. Remote revocation is best effort:
// a platform outage must never block local disconnection.
func (u *socialAccountUsecase) Disconnect(ctx context.Context, accountID int64, revoke bool) error {
	account, err := u.accounts.GetByID(ctx, accountID)
	if err != nil {
		return ErrAccountNotFound
	}
	status := model.AccountStatusDisconnected
	if revoke {
		if err := u.oauth.RevokeToken(ctx, account); err != nil {
			logger.GetLogger().
				WithField("platform", account.Platform).
				WithField("accountID", accountID).
				WithField("error", err).
				Warn("Remote token revocation failed; disconnecting locally anyway")
		} else {
			status = model.AccountStatusRevoked
		}
	}
	if err := u.accounts.MarkDisconnected(ctx, accountID, status, time.Now().UTC()); err != nil {
		return err
	}
	u.appendAudit(ctx, &model.AuditEntry{
		Action:      "account_disconnected",
		Platform:    string(account.Platform),
		WorkspaceID: account.WorkspaceID,
		AccountID:   accountID,
		Detail:      map[string]interface{}{"revoked": revoke},
	})
	return nil
}

// Refresh runs the platform's token refresh and writes the new tokens back.
// A failed refresh flips the account to token_expired so the workspace
// health view surfaces it.
func (u *socialAccountUsecase) Refresh(ctx context.Context, accountID int64) (*model.SocialAccount, error) {
	account, err := u.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, ErrAccountNotFound
	}

	tok, err := u.oauth.RefreshToken(ctx, account)
	if err != nil {
		if updErr := u.accounts.UpdateStatus(ctx, accountID, model.AccountStatusTokenExpired, nil); updErr != nil {
			logger.GetLogger().WithField("error", updErr).Error("Error while marking account token_expired")
		}
		u.appendAudit(ctx, &model.AuditEntry{
			Action:      "token_refresh_failed",
			Platform:    string(account.Platform),
			WorkspaceID: account.WorkspaceID,
			AccountID:   accountID,
		})
		return nil, err
	}

	refreshToken := tok.RefreshToken
	if refreshToken == "" {
		refreshToken = account.RefreshToken
	}
	metadata := account.Metadata
	if len(tok.Metadata) > 0 {
		if metadata == nil {
			metadata = map[string]interface{}{}
		}
		for k, v := range tok.Metadata {
			metadata[k] = v
		}
	}
	if err := u.accounts.UpdateTokens(ctx, accountID, tok.AccessToken, refreshToken, tok.ExpiresAt(time.Now().UTC()), metadata); err != nil {
		return nil, err
	}
	return u.accounts.GetByID(ctx, accountID)
}

func (u *socialAccountUsecase) GetByID(ctx context.Context, accountID int64) (*model.SocialAccount, error) {
	account, err := u.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func (u *socialAccountUsecase) ListByWorkspace(ctx context.Context, workspaceID int64) ([]*model.SocialAccount, error) {
	return u.accounts.ListByWorkspace(ctx, workspaceID)
}

// HealthStatus aggregates account statuses for a workspace and counts
// connected accounts whose token expires inside the attention window.
func (u *socialAccountUsecase) HealthStatus(ctx context.Context, workspaceID int64) (*dto.WorkspaceHealth, error) {
	accounts, err := u.accounts.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	health := &dto.WorkspaceHealth{
		WorkspaceID: workspaceID,
		ByStatus:    map[string]int64{},
	}
	deadline := time.Now().UTC().Add(expiringSoonWindow)
	for _, a := range accounts {
		health.Total++
		health.ByStatus[a.Status]++
		if a.Status == model.AccountStatusConnected && a.TokenExpiresAt != nil && a.TokenExpiresAt.Before(deadline) {
			health.ExpiringSoon++
		}
	}
	return health, nil
}

func (u *socialAccountUsecase) ExpiringTokens(ctx context.Context, within time.Duration) ([]*model.SocialAccount, error) {
	if within <= 0 {
		within = expiringSoonWindow
	}
	return u.accounts.ListExpiring(ctx, time.Now().UTC().Add(within))
}

func (u *socialAccountUsecase) appendAudit(ctx context.Context, entry *model.AuditEntry) {
	if u.audit == nil {
		return
	}
	if err := u.audit.Append(ctx, entry); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while appending audit entry")
	}
}

// AuditFanout delivers every entry to all sinks, keeping going past
// individual sink failures.
type AuditFanout struct {
	sinks []repository.IAudit
}

func NewAuditFanout(sinks ...repository.IAudit) *AuditFanout {
	return &AuditFanout{sinks: sinks}
}

func (f *AuditFanout) Append(ctx context.Context, entry *model.AuditEntry) error {
	var firstErr error
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Append(ctx, entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
