package usecase

import (
	"context"
	"time"

	"socialhub/domain/dto"
	"socialhub/domain/model"
	"socialhub/domain/repository"
	"socialhub/infrastructure/logger"
)

type IForceReauthUsecase interface {
	Execute(ctx context.Context, platforms []model.Platform, reason, adminID string) (*dto.ForceReauthResult, error)
}

type forceReauthUsecase struct {
	accounts repository.ISocialAccount
	notifier repository.INotifier
	audit    repository.IAudit
}

func NewForceReauthUsecase(accounts repository.ISocialAccount, notifier repository.INotifier, audit repository.IAudit) IForceReauthUsecase {
	return &forceReauthUsecase{accounts: accounts, notifier: notifier, audit: audit}
}

// Execute revokes every connected or token_expired account on the given
// platforms across all workspaces, then notifies each affected tenant.
// Notification failures are logged and do not roll back revocations; a
// half-notified fleet is preferable to accounts left usable after a
// platform-side security incident.
func (u *forceReauthUsecase) Execute(ctx context.Context, platforms []model.Platform, reason, adminID string) (*dto.ForceReauthResult, error) {
	if len(platforms) == 0 {
		platforms = model.AllPlatforms()
	}
	accounts, err := u.accounts.ListByPlatformsAndStatus(ctx, platforms,
		[]string{model.AccountStatusConnected, model.AccountStatusTokenExpired})
	if err != nil {
		return nil, err
	}

	result := &dto.ForceReauthResult{}
	now := time.Now().UTC()
	revokedIDs := make([]int64, 0, len(accounts))
	for _, account := range accounts {
		meta := map[string]interface{}{
			"revocation_reason": reason,
			"revoked_at":        now.Format(time.RFC3339),
			"revoked_by":        adminID,
		}
		if err := u.accounts.UpdateStatus(ctx, account.ID, model.AccountStatusRevoked, meta); err != nil {
			logger.GetLogger().
				WithField("accountID", account.ID).
				WithField("error", err).
				Error("Error while revoking account")
			continue
		}
		revokedIDs = append(revokedIDs, account.ID)
		result.AccountsRevoked++
	}

	tenants, err := u.accounts.DistinctTenants(ctx, revokedIDs)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while resolving affected tenants")
	}
	result.TenantsAffected = int64(len(tenants))

	platformNames := make([]string, 0, len(platforms))
	for _, p := range platforms {
		platformNames = append(platformNames, string(p))
	}
	if u.notifier != nil {
		for _, tenantID := range tenants {
			err := u.notifier.NotifyTenant(ctx, tenantID, "reauthorization_required", map[string]interface{}{
				"platforms": platformNames,
				"reason":    reason,
			})
			if err != nil {
				logger.GetLogger().
					WithField("tenantID", tenantID).
					WithField("error", err).
					Warn("Tenant notification failed")
				continue
			}
			result.TenantsNotified++
		}
	}

	if u.audit != nil {
		entry := &model.AuditEntry{
			Action:  "force_reauthorization",
			ActorID: adminID,
			Detail: map[string]interface{}{
				"platforms":        platformNames,
				"reason":           reason,
				"accounts_revoked": result.AccountsRevoked,
				"tenants_affected": result.TenantsAffected,
				"tenants_notified": result.TenantsNotified,
			},
			CreatedAt: now,
		}
		if err := u.audit.Append(ctx, entry); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while appending audit entry")
		}
	}

	logger.GetLogger().
		WithField("accountsRevoked", result.AccountsRevoked).
		WithField("tenantsAffected", result.TenantsAffected).
		Info("Force reauthorization executed")
	return result, nil
}
