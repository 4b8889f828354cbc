package persistence

import (
	"database/sql"
	"fmt"
)

// EnsureSocialAccountSchema creates the social_accounts and workspaces tables
// on PostgreSQL if they do not exist. Safe to call at startup.
func EnsureSocialAccountSchema(db *sql.DB) error {
	ddls := []string{
		`CREATE TABLE IF NOT EXISTS workspaces (
			id BIGSERIAL PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS social_accounts (
			id BIGSERIAL PRIMARY KEY,
			workspace_id BIGINT NOT NULL,
			platform TEXT NOT NULL,
			platform_account_id TEXT NOT NULL,
			account_name TEXT NOT NULL DEFAULT '',
			account_username TEXT NOT NULL DEFAULT '',
			profile_image_url TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			access_token TEXT NOT NULL DEFAULT '',
			refresh_token TEXT NULL,
			token_expires_at TIMESTAMPTZ NULL,
			connected_by_user_id TEXT NOT NULL DEFAULT '',
			connected_at TIMESTAMPTZ NOT NULL,
			last_refreshed_at TIMESTAMPTZ NULL,
			disconnected_at TIMESTAMPTZ NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_social_accounts_identity ON social_accounts(workspace_id, platform, platform_account_id)`,
		`CREATE INDEX IF NOT EXISTS ix_social_accounts_expiry ON social_accounts(status, token_expires_at)`,
	}
	for _, ddl := range ddls {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("ensure social_accounts schema: %w", err)
		}
	}
	return nil
}
