package repository

import (
	"context"
	"time"

	"socialhub/domain/model"
)

// ISocialAccount persists connected social accounts. Exactly one row is
// active per (workspace_id, platform, platform_account_id); Upsert updates
// the existing row on reconnect.
type ISocialAccount interface {
	Upsert(ctx context.Context, account *model.SocialAccount) (*model.SocialAccount, error)
	GetByID(ctx context.Context, id int64) (*model.SocialAccount, error)
	ListByWorkspace(ctx context.Context, workspaceID int64) ([]*model.SocialAccount, error)
	ListByPlatformsAndStatus(ctx context.Context, platforms []model.Platform, statuses []string) ([]*model.SocialAccount, error)
	ListExpiring(ctx context.Context, before time.Time) ([]*model.SocialAccount, error)
	UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt *time.Time, metadata map[string]interface{}) error
	UpdateStatus(ctx context.Context, id int64, status string, metadata map[string]interface{}) error
	MarkDisconnected(ctx context.Context, id int64, status string, at time.Time) error
	DistinctTenants(ctx context.Context, accountIDs []int64) ([]int64, error)
}

// IPlatformIntegration reads DB-backed OAuth app configuration rows.
type IPlatformIntegration interface {
	GetActive(ctx context.Context, platform model.Platform) (*model.PlatformIntegration, error)
}

// IAudit appends operational audit entries.
type IAudit interface {
	Append(ctx context.Context, entry *model.AuditEntry) error
}

// INotifier delivers a notification payload to one tenant.
type INotifier interface {
	NotifyTenant(ctx context.Context, tenantID int64, event string, payload map[string]interface{}) error
}
