package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"socialhub/domain/model"
)

type SocialAccountRepositoryMSSQL struct {
	db     *sql.DB
	cipher *TokenCipher
}

func NewSocialAccountRepositoryMSSQL(db *sql.DB, cipher *TokenCipher) *SocialAccountRepositoryMSSQL {
	return &SocialAccountRepositoryMSSQL{db: db, cipher: cipher}
}

// EnsureSocialAccountSchemaMSSQL creates the social_accounts and workspaces
// tables for SQL Server if they do not exist.
func EnsureSocialAccountSchemaMSSQL(db *sql.DB) error {
	ddls := []string{
		`IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.workspaces') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[workspaces] (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        tenant_id BIGINT NOT NULL,
        name NVARCHAR(255) NOT NULL DEFAULT '',
        created_at DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME()
    );
END`,
		`IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.social_accounts') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[social_accounts] (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        workspace_id BIGINT NOT NULL,
        platform NVARCHAR(32) NOT NULL,
        platform_account_id NVARCHAR(128) NOT NULL,
        account_name NVARCHAR(255) NOT NULL DEFAULT '',
        account_username NVARCHAR(255) NOT NULL DEFAULT '',
        profile_image_url NVARCHAR(1024) NOT NULL DEFAULT '',
        status NVARCHAR(32) NOT NULL,
        access_token NVARCHAR(MAX) NOT NULL DEFAULT '',
        refresh_token NVARCHAR(MAX) NULL,
        token_expires_at DATETIME2 NULL,
        connected_by_user_id NVARCHAR(128) NOT NULL DEFAULT '',
        connected_at DATETIME2 NOT NULL,
        last_refreshed_at DATETIME2 NULL,
        disconnected_at DATETIME2 NULL,
        metadata NVARCHAR(MAX) NOT NULL DEFAULT '{}',
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE UNIQUE INDEX UX_social_accounts_identity ON dbo.[social_accounts](workspace_id, platform, platform_account_id);
END`,
	}
	for _, ddl := range ddls {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("create social_accounts (mssql): %w", err)
		}
	}
	return nil
}

func (r *SocialAccountRepositoryMSSQL) Upsert(ctx context.Context, a *model.SocialAccount) (*model.SocialAccount, error) {
	now := time.Now().UTC()
	if a.ConnectedAt.IsZero() {
		a.ConnectedAt = now
	}
	access, err := r.cipher.Encrypt(a.AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := r.cipher.Encrypt(a.RefreshToken)
	if err != nil {
		return nil, err
	}
	meta, err := marshalMetadata(a.Metadata)
	if err != nil {
		return nil, err
	}
	// MERGE upsert by (workspace_id, platform, platform_account_id)
	q := `MERGE dbo.[social_accounts] AS target
USING (VALUES (@p1, @p2, @p3)) AS src(workspace_id, platform, platform_account_id)
ON target.workspace_id = src.workspace_id AND target.platform = src.platform AND target.platform_account_id = src.platform_account_id
WHEN MATCHED THEN UPDATE SET
    account_name=@p4,
    account_username=@p5,
    profile_image_url=@p6,
    status=@p7,
    access_token=@p8,
    refresh_token=@p9,
    token_expires_at=@p10,
    connected_by_user_id=@p11,
    connected_at=@p12,
    disconnected_at=NULL,
    metadata=@p13,
    updated_at=@p14
WHEN NOT MATCHED THEN
    INSERT (workspace_id, platform, platform_account_id, account_name, account_username, profile_image_url, status, access_token, refresh_token, token_expires_at, connected_by_user_id, connected_at, metadata, created_at, updated_at)
    VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10,@p11,@p12,@p13,@p14,@p14);`
	_, err = r.db.ExecContext(ctx, q,
		a.WorkspaceID, string(a.Platform), a.PlatformAccountID,
		a.AccountName, a.AccountUsername, a.ProfileImageURL, a.Status,
		access, nullString(refresh), nullTime(a.TokenExpiresAt),
		a.ConnectedByUserID, a.ConnectedAt, meta, now)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+socialAccountColumns+` FROM dbo.[social_accounts] WHERE workspace_id=@p1 AND platform=@p2 AND platform_account_id=@p3`,
		a.WorkspaceID, string(a.Platform), a.PlatformAccountID)
	return r.scan(row)
}

func (r *SocialAccountRepositoryMSSQL) GetByID(ctx context.Context, id int64) (*model.SocialAccount, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+socialAccountColumns+` FROM dbo.[social_accounts] WHERE id=@p1`, id)
	return r.scan(row)
}

func (r *SocialAccountRepositoryMSSQL) ListByWorkspace(ctx context.Context, workspaceID int64) ([]*model.SocialAccount, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+socialAccountColumns+` FROM dbo.[social_accounts] WHERE workspace_id=@p1 ORDER BY id`, workspaceID)
	if err != nil {
		return nil, err
	}
	return r.scanAll(rows)
}

// ListByPlatformsAndStatus expands both lists into an IN clause; the MSSQL
// driver has no array binding.
func (r *SocialAccountRepositoryMSSQL) ListByPlatformsAndStatus(ctx context.Context, platforms []model.Platform, statuses []string) ([]*model.SocialAccount, error) {
	args := make([]interface{}, 0, len(platforms)+len(statuses))
	pPh := make([]string, 0, len(platforms))
	for _, p := range platforms {
		args = append(args, string(p))
		pPh = append(pPh, fmt.Sprintf("@p%d", len(args)))
	}
	sPh := make([]string, 0, len(statuses))
	for _, s := range statuses {
		args = append(args, s)
		sPh = append(sPh, fmt.Sprintf("@p%d", len(args)))
	}
	q := fmt.Sprintf(`SELECT %s FROM dbo.[social_accounts] WHERE platform IN (%s) AND status IN (%s) ORDER BY id`,
		socialAccountColumns, strings.Join(pPh, ","), strings.Join(sPh, ","))
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return r.scanAll(rows)
}

func (r *SocialAccountRepositoryMSSQL) ListExpiring(ctx context.Context, before time.Time) ([]*model.SocialAccount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+socialAccountColumns+` FROM dbo.[social_accounts] WHERE status=@p1 AND token_expires_at IS NOT NULL AND token_expires_at <= @p2 ORDER BY token_expires_at`,
		model.AccountStatusConnected, before)
	if err != nil {
		return nil, err
	}
	return r.scanAll(rows)
}

func (r *SocialAccountRepositoryMSSQL) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt *time.Time, metadata map[string]interface{}) error {
	access, err := r.cipher.Encrypt(accessToken)
	if err != nil {
		return err
	}
	refresh, err := r.cipher.Encrypt(refreshToken)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if metadata != nil {
		meta, err := marshalMetadata(metadata)
		if err != nil {
			return err
		}
		_, err = r.db.ExecContext(ctx,
			`UPDATE dbo.[social_accounts] SET access_token=@p1, refresh_token=@p2, token_expires_at=@p3, metadata=@p4, status=@p5, last_refreshed_at=@p6, updated_at=@p6 WHERE id=@p7`,
			access, nullString(refresh), nullTime(expiresAt), meta, model.AccountStatusConnected, now, id)
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE dbo.[social_accounts] SET access_token=@p1, refresh_token=@p2, token_expires_at=@p3, status=@p4, last_refreshed_at=@p5, updated_at=@p5 WHERE id=@p6`,
		access, nullString(refresh), nullTime(expiresAt), model.AccountStatusConnected, now, id)
	return err
}

func (r *SocialAccountRepositoryMSSQL) UpdateStatus(ctx context.Context, id int64, status string, metadata map[string]interface{}) error {
	now := time.Now().UTC()
	if metadata != nil {
		meta, err := marshalMetadata(metadata)
		if err != nil {
			return err
		}
		_, err = r.db.ExecContext(ctx, `UPDATE dbo.[social_accounts] SET status=@p1, metadata=@p2, updated_at=@p3 WHERE id=@p4`, status, meta, now, id)
		return err
	}
	_, err := r.db.ExecContext(ctx, `UPDATE dbo.[social_accounts] SET status=@p1, updated_at=@p2 WHERE id=@p3`, status, now, id)
	return err
}

func (r *SocialAccountRepositoryMSSQL) MarkDisconnected(ctx context.Context, id int64, status string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[social_accounts] SET status=@p1, disconnected_at=@p2, access_token='', refresh_token=NULL, updated_at=@p3 WHERE id=@p4`,
		status, at, time.Now().UTC(), id)
	return err
}

func (r *SocialAccountRepositoryMSSQL) DistinctTenants(ctx context.Context, accountIDs []int64) ([]int64, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	args := make([]interface{}, 0, len(accountIDs))
	ph := make([]string, 0, len(accountIDs))
	for _, id := range accountIDs {
		args = append(args, id)
		ph = append(ph, fmt.Sprintf("@p%d", len(args)))
	}
	q := fmt.Sprintf(`SELECT DISTINCT w.tenant_id FROM dbo.[social_accounts] a JOIN dbo.[workspaces] w ON w.id = a.workspace_id WHERE a.id IN (%s) ORDER BY w.tenant_id`, strings.Join(ph, ","))
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tenants []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		tenants = append(tenants, id)
	}
	return tenants, rows.Err()
}

func (r *SocialAccountRepositoryMSSQL) scan(row *sql.Row) (*model.SocialAccount, error) {
	a := &model.SocialAccount{}
	var platform, access string
	var refresh, meta sql.NullString
	var expiresAt, refreshedAt, disconnectedAt sql.NullTime
	if err := row.Scan(&a.ID, &a.WorkspaceID, &platform, &a.PlatformAccountID, &a.AccountName, &a.AccountUsername,
		&a.ProfileImageURL, &a.Status, &access, &refresh, &expiresAt, &a.ConnectedByUserID, &a.ConnectedAt,
		&refreshedAt, &disconnectedAt, &meta, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return r.finish(a, platform, access, refresh, meta, expiresAt, refreshedAt, disconnectedAt)
}

func (r *SocialAccountRepositoryMSSQL) scanAll(rows *sql.Rows) ([]*model.SocialAccount, error) {
	defer rows.Close()
	var out []*model.SocialAccount
	for rows.Next() {
		a := &model.SocialAccount{}
		var platform, access string
		var refresh, meta sql.NullString
		var expiresAt, refreshedAt, disconnectedAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.WorkspaceID, &platform, &a.PlatformAccountID, &a.AccountName, &a.AccountUsername,
			&a.ProfileImageURL, &a.Status, &access, &refresh, &expiresAt, &a.ConnectedByUserID, &a.ConnectedAt,
			&refreshedAt, &disconnectedAt, &meta, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		acc, err := r.finish(a, platform, access, refresh, meta, expiresAt, refreshedAt, disconnectedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

func (r *SocialAccountRepositoryMSSQL) finish(a *model.SocialAccount, platform, access string, refresh, meta sql.NullString, expiresAt, refreshedAt, disconnectedAt sql.NullTime) (*model.SocialAccount, error) {
	a.Platform = model.Platform(platform)
	var err error
	if a.AccessToken, err = r.cipher.Decrypt(access); err != nil {
		return nil, err
	}
	if refresh.Valid {
		if a.RefreshToken, err = r.cipher.Decrypt(refresh.String); err != nil {
			return nil, err
		}
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		a.TokenExpiresAt = &t
	}
	if refreshedAt.Valid {
		t := refreshedAt.Time
		a.LastRefreshedAt = &t
	}
	if disconnectedAt.Valid {
		t := disconnectedAt.Time
		a.DisconnectedAt = &t
	}
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &a.Metadata); err != nil {
			return nil, err
		}
	}
	return a, nil
}
