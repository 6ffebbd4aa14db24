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

// MySQLUserKeyRepository implements UserKey persistence for MySQL.
type MySQLUserKeyRepository struct {
	db *sql.DB
}

// Get retrieves the user's master public key and key version.
func (m *MySQLUserKeyRepository) Get(
	ctx context.Context,
	userID uuid.UUID,
) (*identityDomain.UserKey, error) {
	return m.get(ctx, userID, false)
}

// GetForUpdate retrieves the user key with a row lock.
func (m *MySQLUserKeyRepository) GetForUpdate(
	ctx context.Context,
	userID uuid.UUID,
) (*identityDomain.UserKey, error) {
	return m.get(ctx, userID, true)
}

func (m *MySQLUserKeyRepository) get(
	ctx context.Context,
	userID uuid.UUID,
	forUpdate bool,
) (*identityDomain.UserKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT user_id, public_key, master_key_version, updated_at
			  FROM user_keys
			  WHERE user_id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	id, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}

	var userKey identityDomain.UserKey
	err = querier.QueryRowContext(ctx, query, id).Scan(
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
func (m *MySQLUserKeyRepository) Create(ctx context.Context, userKey *identityDomain.UserKey) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO user_keys (user_id, public_key, master_key_version, updated_at)
			  VALUES (?, ?, ?, ?)`

	id, err := userKey.UserID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		userKey.PublicKey,
		userKey.MasterKeyVersion,
		userKey.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create user key")
	}
	return nil
}

// Update replaces the master public key and sets the new version.
func (m *MySQLUserKeyRepository) Update(
	ctx context.Context,
	userID uuid.UUID,
	publicKey string,
	masterKeyVersion int,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE user_keys
			  SET public_key = ?, master_key_version = ?, updated_at = ?
			  WHERE user_id = ?`

	id, err := userID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	result, err := querier.ExecContext(ctx, query, publicKey, masterKeyVersion, time.Now().UTC(), id)
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

// NewMySQLUserKeyRepository creates a new MySQL UserKey repository instance.
func NewMySQLUserKeyRepository(db *sql.DB) *MySQLUserKeyRepository {
	return &MySQLUserKeyRepository{db: db}
}
