package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"socialhub/domain/model"
)

const socialAccountColumns = `id, workspace_id, platform, platform_account_id, account_name, account_username, profile_image_url, status, access_token, refresh_token, token_expires_at, connected_by_user_id, connected_at, last_refreshed_at, disconnected_at, metadata, created_at, updated_at`

type SocialAccountRepository struct {
	db     *sql.DB
	cipher *TokenCipher
}

func NewSocialAccountRepository(db *sql.DB, cipher *TokenCipher) *SocialAccountRepository {
	return &SocialAccountRepository{db: db, cipher: cipher}
}

// Upsert inserts the account or, when the same external account is already
// connected to the workspace, updates the existing row in place. The row's
// identity key is (workspace_id, platform, platform_account_id).
func (r *SocialAccountRepository) Upsert(ctx context.Context, a *model.SocialAccount) (*model.SocialAccount, error) {
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
	q := `INSERT INTO social_accounts (workspace_id, platform, platform_account_id, account_name, account_username, profile_image_url, status, access_token, refresh_token, token_expires_at, connected_by_user_id, connected_at, last_refreshed_at, disconnected_at, metadata, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NULL,NULL,$13,$14,$14)
		  ON CONFLICT (workspace_id, platform, platform_account_id) DO UPDATE SET
			account_name=EXCLUDED.account_name,
			account_username=EXCLUDED.account_username,
			profile_image_url=EXCLUDED.profile_image_url,
			status=EXCLUDED.status,
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			token_expires_at=EXCLUDED.token_expires_at,
			connected_by_user_id=EXCLUDED.connected_by_user_id,
			connected_at=EXCLUDED.connected_at,
			disconnected_at=NULL,
			metadata=EXCLUDED.metadata,
			updated_at=EXCLUDED.updated_at
		  RETURNING ` + socialAccountColumns
	row := r.db.QueryRowContext(ctx, q,
		a.WorkspaceID, string(a.Platform), a.PlatformAccountID, a.AccountName, a.AccountUsername,
		a.ProfileImageURL, a.Status, access, nullString(refresh), nullTime(a.TokenExpiresAt),
		a.ConnectedByUserID, a.ConnectedAt, meta, now)
	return r.scan(row)
}

func (r *SocialAccountRepository) GetByID(ctx context.Context, id int64) (*model.SocialAccount, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+socialAccountColumns+` FROM social_accounts WHERE id=$1`, id)
	return r.scan(row)
}

func (r *SocialAccountRepository) ListByWorkspace(ctx context.Context, workspaceID int64) ([]*model.SocialAccount, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+socialAccountColumns+` FROM social_accounts WHERE workspace_id=$1 ORDER BY id`, workspaceID)
	if err != nil {
		return nil, err
	}
	return r.scanAll(rows)
}

func (r *SocialAccountRepository) ListByPlatformsAndStatus(ctx context.Context, platforms []model.Platform, statuses []string) ([]*model.SocialAccount, error) {
	names := make([]string, 0, len(platforms))
	for _, p := range platforms {
		names = append(names, string(p))
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+socialAccountColumns+` FROM social_accounts WHERE platform = ANY($1) AND status = ANY($2) ORDER BY id`,
		pq.Array(names), pq.Array(statuses))
	if err != nil {
		return nil, err
	}
	return r.scanAll(rows)
}

func (r *SocialAccountRepository) ListExpiring(ctx context.Context, before time.Time) ([]*model.SocialAccount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+socialAccountColumns+` FROM social_accounts WHERE status=$1 AND token_expires_at IS NOT NULL AND token_expires_at <= $2 ORDER BY token_expires_at`,
		model.AccountStatusConnected, before)
	if err != nil {
		return nil, err
	}
	return r.scanAll(rows)
}

func (r *SocialAccountRepository) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt *time.Time, metadata map[string]interface{}) error {
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
			`UPDATE social_accounts SET access_token=$1, refresh_token=$2, token_expires_at=$3, metadata=$4, status=$5, last_refreshed_at=$6, updated_at=$6 WHERE id=$7`,
			access, nullString(refresh), nullTime(expiresAt), meta, model.AccountStatusConnected, now, id)
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE social_accounts SET access_token=$1, refresh_token=$2, token_expires_at=$3, status=$4, last_refreshed_at=$5, updated_at=$5 WHERE id=$6`,
		access, nullString(refresh), nullTime(expiresAt), model.AccountStatusConnected, now, id)
	return err
}

func (r *SocialAccountRepository) UpdateStatus(ctx context.Context, id int64, status string, metadata map[string]interface{}) error {
	now := time.Now().UTC()
	if metadata != nil {
		meta, err := marshalMetadata(metadata)
		if err != nil {
			return err
		}
		_, err = r.db.ExecContext(ctx, `UPDATE social_accounts SET status=$1, metadata=$2, updated_at=$3 WHERE id=$4`, status, meta, now, id)
		return err
	}
	_, err := r.db.ExecContext(ctx, `UPDATE social_accounts SET status=$1, updated_at=$2 WHERE id=$3`, status, now, id)
	return err
}

// MarkDisconnected clears the token columns along with the status change so a
// dead row never keeps a usable credential around.
func (r *SocialAccountRepository) MarkDisconnected(ctx context.Context, id int64, status string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE social_accounts SET status=$1, disconnected_at=$2, access_token='', refresh_token=NULL, updated_at=$3 WHERE id=$4`,
		status, at, time.Now().UTC(), id)
	return err
}

// DistinctTenants resolves the set of tenants owning the given accounts by
// joining through the workspaces table.
func (r *SocialAccountRepository) DistinctTenants(ctx context.Context, accountIDs []int64) ([]int64, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT w.tenant_id FROM social_accounts a JOIN workspaces w ON w.id = a.workspace_id WHERE a.id = ANY($1) ORDER BY w.tenant_id`,
		pq.Array(accountIDs))
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

func (r *SocialAccountRepository) scan(row *sql.Row) (*model.SocialAccount, error) {
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

func (r *SocialAccountRepository) scanAll(rows *sql.Rows) ([]*model.SocialAccount, error) {
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

func (r *SocialAccountRepository) finish(a *model.SocialAccount, platform, access string, refresh, meta sql.NullString, expiresAt, refreshedAt, disconnectedAt sql.NullTime) (*model.SocialAccount, error) {
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

func marshalMetadata(m map[string]interface{}) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
