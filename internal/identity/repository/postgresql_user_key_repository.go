package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/envie/internal/database"
	apperrors "github.com/allisson/envie/internal/errors"
	identityDomain "github.com/allisson/envie/internal/identity/domain"
)

// PostgreSQLUserKeyRepository implements UserKey persistence for PostgreSQL.
type PostgreSQLUserKeyRepository struct {
	db *sql.DB
}

// Get retrieves the user's master public key and key version.
func (p *PostgreSQLUserKeyRepository) Get(
	ctx context.Context,
	userID uuid.UUID,
) (*identityDomain.UserKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT user_id, public_key, master_key_version, updated_at
			  FROM user_keys
			  WHERE user_id = $1`

	var userKey identityDomain.UserKey
	err := querier.QueryRowContext(ctx, query, userID).Scan(
		&userKey.UserID,
		&userKey.PublicKey,
		&userKey.MasterKeyVersion,
		&userKey.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, identityDomain.ErrUserKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user key")
	}

	return &userKey, nil
}

// GetForUpdate retrieves the user key with a row lock. Master key rotation
// holds this lock while swapping every wrapped copy.
func (p *PostgreSQLUserKeyRepository) GetForUpdate(
	ctx context.Context,
	userID uuid.UUID,
) (*identityDomain.UserKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT user_id, public_key, master_key_version, updated_at
			  FROM user_keys
			  WHERE user_id = $1 FOR UPDATE`

	var userKey identityDomain.UserKey
	err := querier.QueryRowContext(ctx, query, userID).Scan(
		&userKey.UserID,
		&userKey.PublicKey,
		&userKey.MasterKeyVersion,
		&userKey.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, identityDomain.ErrUserKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user key")
	}

	return &userKey, nil
}

// Create registers the user's first master public key at version 1.
func (p *PostgreSQLUserKeyRepository) Create(ctx context.Context, userKey *identityDomain.UserKey) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO user_keys (user_id, public_key, master_key_version, updated_at)
			  VALUES ($1, $2, $3, $4)`

	_, err := querier.ExecContext(
		ctx,
		query,
		userKey.UserID,
		userKey.PublicKey,
		userKey.MasterKeyVersion,
		userKey.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create user key")
	}
	return nil
}

// Update replaces the master public key and sets the new version. Called from
// the master key rotation transaction.
func (p *PostgreSQLUserKeyRepository) Update(
	ctx context.Context,
	userID uuid.UUID,
	publicKey string,
	masterKeyVersion int,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE user_keys
			  SET public_key = $1, master_key_version = $2, updated_at = $3
			  WHERE user_id = $4`

	result, err := querier.ExecContext(ctx, query, publicKey, masterKeyVersion, time.Now().UTC(), userID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update user key")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		return identityDomain.ErrUserKeyNotFound
	}
	return nil
}

// NewPostgreSQLUserKeyRepository creates a new PostgreSQL UserKey repository instance.
func NewPostgreSQLUserKeyRepository(db *sql.DB) *PostgreSQLUserKeyRepository {
	return &PostgreSQLUserKeyRepository{db: db}
}
