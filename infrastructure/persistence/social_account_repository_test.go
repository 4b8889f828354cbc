package persistence

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialhub/domain/model"
)

// encryptedWith matches an argument that decrypts to the given plaintext,
// since the cipher's random nonce makes the ciphertext unpredictable.
type encryptedWith struct {
	cipher *TokenCipher
	plain  string
}

func (m encryptedWith) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	got, err := m.cipher.Decrypt(s)
	return err == nil && got == m.plain
}

func newMockRepository(t *testing.T) (*SocialAccountRepository, sqlmock.Sqlmock, *TokenCipher) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	cipher, err := NewTokenCipher("test-secret")
	require.NoError(t, err)
	return NewSocialAccountRepository(db, cipher), mock, cipher
}

func accountColumns() []string {
	return []string{
		"id", "workspace_id", "platform", "platform_account_id", "account_name",
		"account_username", "profile_image_url", "status", "access_token",
		"refresh_token", "token_expires_at", "connected_by_user_id", "connected_at",
		"last_refreshed_at", "disconnected_at", "metadata", "created_at", "updated_at",
	}
}

func TestGetByIDDecryptsTokens(t *testing.T) {
	repo, mock, cipher := newMockRepository(t)

	access, err := cipher.Encrypt("plain-access")
	require.NoError(t, err)
	refresh, err := cipher.Encrypt("plain-refresh")
	require.NoError(t, err)
	now := time.Now().UTC()
	expires := now.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+socialAccountColumns+` FROM social_accounts WHERE id=$1`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(accountColumns()).
			AddRow(int64(7), int64(3), "facebook", "pg-1", "Acme Page", "acme",
				"", model.AccountStatusConnected, access, refresh, expires, "user-11", now,
				nil, nil, `{"user_token":"ut"}`, now, now))

	got, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "plain-access", got.AccessToken)
	assert.Equal(t, "plain-refresh", got.RefreshToken)
	assert.Equal(t, model.PlatformFacebook, got.Platform)
	require.NotNil(t, got.TokenExpiresAt)
	assert.Equal(t, "ut", got.MetadataString("user_token"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertEncryptsTokensBeforeWrite(t *testing.T) {
	repo, mock, cipher := newMockRepository(t)

	now := time.Now().UTC()
	expires := now.Add(2 * time.Hour)
	account := &model.SocialAccount{
		WorkspaceID:       3,
		Platform:          model.PlatformLinkedIn,
		PlatformAccountID: "urn:li:person:1",
		AccountName:       "Jamie",
		Status:            model.AccountStatusConnected,
		AccessToken:       "li-access",
		RefreshToken:      "li-refresh",
		TokenExpiresAt:    &expires,
		ConnectedByUserID: "user-11",
	}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO social_accounts`)).
		WithArgs(int64(3), "linkedin", "urn:li:person:1", "Jamie", "", "",
			model.AccountStatusConnected,
			encryptedWith{cipher, "li-access"},
			encryptedWith{cipher, "li-refresh"},
			sqlmock.AnyArg(), "user-11", sqlmock.AnyArg(), "{}", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(accountColumns()).
			AddRow(int64(42), int64(3), "linkedin", "urn:li:person:1", "Jamie", "",
				"", model.AccountStatusConnected, mustEncrypt(t, cipher, "li-access"),
				mustEncrypt(t, cipher, "li-refresh"), expires, "user-11", now,
				nil, nil, "{}", now, now))

	got, err := repo.Upsert(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, "li-access", got.AccessToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTokensWithMetadata(t *testing.T) {
	repo, mock, cipher := newMockRepository(t)
	expires := time.Now().UTC().Add(time.Hour)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE social_accounts SET access_token=$1, refresh_token=$2, token_expires_at=$3, metadata=$4, status=$5, last_refreshed_at=$6, updated_at=$6 WHERE id=$7`)).
		WithArgs(encryptedWith{cipher, "new-access"}, encryptedWith{cipher, "new-refresh"},
			sqlmock.AnyArg(), `{"user_token":"ut"}`, model.AccountStatusConnected,
			sqlmock.AnyArg(), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateTokens(context.Background(), 9, "new-access", "new-refresh", &expires,
		map[string]interface{}{"user_token": "ut"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkDisconnectedClearsTokenColumns(t *testing.T) {
	repo, mock, _ := newMockRepository(t)
	at := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE social_accounts SET status=$1, disconnected_at=$2, access_token='', refresh_token=NULL, updated_at=$3 WHERE id=$4`)).
		WithArgs(model.AccountStatusRevoked, at, sqlmock.AnyArg(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkDisconnected(context.Background(), 5, model.AccountStatusRevoked, at)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByPlatformsAndStatusUsesArrayBinding(t *testing.T) {
	repo, mock, _ := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE platform = ANY($1) AND status = ANY($2)`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(accountColumns()))

	got, err := repo.ListByPlatformsAndStatus(context.Background(),
		[]model.Platform{model.PlatformFacebook, model.PlatformTwitter},
		[]string{model.AccountStatusConnected, model.AccountStatusTokenExpired})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistinctTenantsShortCircuitsOnEmptyInput(t *testing.T) {
	repo, mock, _ := newMockRepository(t)

	tenants, err := repo.DistinctTenants(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, tenants)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func mustEncrypt(t *testing.T, cipher *TokenCipher, plain string) string {
	t.Helper()
	s, err := cipher.Encrypt(plain)
	require.NoError(t, err)
	return s
}
