package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/livermore/internal/errkind"
	"github.com/sawpanic/livermore/internal/model"
)

// UserRepo holds user identity and settings, kept deliberately separate
// from shared market data so a settings migration never touches the
// cache contract.
type UserRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewUserRepo(db *sqlx.DB, timeout time.Duration) *UserRepo {
	return &UserRepo{db: db, timeout: timeout}
}

func (r *UserRepo) GetByIdentity(ctx context.Context, provider, sub string) (model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var u model.User
	err := r.db.GetContext(ctx, &u,
		`SELECT * FROM users WHERE identity_provider = $1 AND identity_sub = $2`, provider, sub)
	if err == sql.ErrNoRows {
		return model.User{}, err
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user by identity: %w", err)
	}

	upgraded, upErr := u.Settings.Upgrade()
	if upErr != nil {
		return u, errkind.New(errkind.SchemaViolation, upErr)
	}
	u.Settings = upgraded
	return u, nil
}

// UpdateSettings persists a user's settings document after upgrading it
// to the current schema version.
func (r *UserRepo) UpdateSettings(ctx context.Context, userID int64, settings model.UserSettings) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	upgraded, err := settings.Upgrade()
	if err != nil {
		return errkind.New(errkind.SchemaViolation, err)
	}
	_, err = r.db.ExecContext(ctx, `UPDATE users SET settings = $1 WHERE id = $2`, upgraded, userID)
	return err
}

// APIKeyRepo validates bearer tokens against active api_keys rows.
type APIKeyRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewAPIKeyRepo(db *sqlx.DB, timeout time.Duration) *APIKeyRepo {
	return &APIKeyRepo{db: db, timeout: timeout}
}

func (r *APIKeyRepo) FindActiveByHash(ctx context.Context, keyHash string) (model.APIKey, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var k model.APIKey
	err := r.db.GetContext(ctx, &k,
		`SELECT * FROM api_keys WHERE key_hash = $1 AND active AND revoked_at IS NULL`, keyHash)
	if err != nil {
		return model.APIKey{}, err
	}
	return k, nil
}
