package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newUserMockRepo(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	sqlxDB := sqlx.NewDb(mockDB, "postgres")
	return NewUserRepo(sqlxDB, 5*time.Second), mock
}

func TestGetByIdentityUpgradesLegacySettings(t *testing.T) {
	repo, mock := newUserMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "identity_provider", "identity_sub", "role", "settings", "created_at"}).
		AddRow(int64(1), "google", "sub-123", "operator", []byte(`{"version":1,"watchlist":["BTC-USD"]}`), time.Now())

	mock.ExpectQuery("SELECT \\* FROM users WHERE identity_provider = \\$1 AND identity_sub = \\$2").
		WithArgs("google", "sub-123").
		WillReturnRows(rows)

	u, err := repo.GetByIdentity(context.Background(), "google", "sub-123")
	require.NoError(t, err)
	require.Equal(t, 2, u.Settings.Version)
	require.Equal(t, []string{"BTC-USD"}, u.Settings.Watchlist)
}

func TestGetByIdentityPassesThroughNoRows(t *testing.T) {
	repo, mock := newUserMockRepo(t)

	mock.ExpectQuery("SELECT \\* FROM users WHERE identity_provider = \\$1 AND identity_sub = \\$2").
		WithArgs("google", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByIdentity(context.Background(), "google", "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestFindActiveByHashReturnsKey(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	sqlxDB := sqlx.NewDb(mockDB, "postgres")
	repo := NewAPIKeyRepo(sqlxDB, 5*time.Second)

	rows := sqlmock.NewRows([]string{"id", "user_id", "key_hash", "active", "created_at", "revoked_at"}).
		AddRow(int64(9), int64(1), "hash-abc", true, time.Now(), nil)

	mock.ExpectQuery("SELECT \\* FROM api_keys WHERE key_hash = \\$1 AND active AND revoked_at IS NULL").
		WithArgs("hash-abc").
		WillReturnRows(rows)

	k, err := repo.FindActiveByHash(context.Background(), "hash-abc")
	require.NoError(t, err)
	require.Equal(t, int64(9), k.ID)
	require.True(t, k.Active)
}
