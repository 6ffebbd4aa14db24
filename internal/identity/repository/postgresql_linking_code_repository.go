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

// PostgreSQLLinkingCodeRepository implements LinkingCode persistence for PostgreSQL.
type PostgreSQLLinkingCodeRepository struct {
	db *sql.DB
}

// Create inserts a new linking code.
func (p *PostgreSQLLinkingCodeRepository) Create(ctx context.Context, code *identityDomain.LinkingCode) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO linking_codes (id, code_hash, user_id, device_public_key, expires_at, used_at, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier.ExecContext(
		ctx,
		query,
		code.ID,
		code.CodeHash,
		code.UserID,
		code.DevicePublicKey,
		code.ExpiresAt,
		code.UsedAt,
		code.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create linking code")
	}
	return nil
}

// ListRedeemable retrieves unused, unexpired codes. Codes are stored as
// Argon2id hashes, so redemption verifies the presented code against each
// candidate; the short TTL keeps this set tiny.
func (p *PostgreSQLLinkingCodeRepository) ListRedeemable(
	ctx context.Context,
	now time.Time,
) ([]*identityDomain.LinkingCode, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, code_hash, user_id, device_public_key, expires_at, used_at, created_at
			  FROM linking_codes
			  WHERE used_at IS NULL AND expires_at > $1
			  ORDER BY created_at, id`

	rows, err := querier.QueryContext(ctx, query, now)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list linking codes")
	}
	defer func() { _ = rows.Close() }()

	var codes []*identityDomain.LinkingCode
	for rows.Next() {
		var code identityDomain.LinkingCode
		err := rows.Scan(
			&code.ID,
			&code.CodeHash,
			&code.UserID,
			&code.DevicePublicKey,
			&code.ExpiresAt,
			&code.UsedAt,
			&code.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan linking code")
		}
		codes = append(codes, &code)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate linking codes")
	}

	return codes, nil
}

// MarkUsed consumes a code. Returns ErrLinkingCodeInvalid when the code was
// already consumed; codes are strictly single-use.
func (p *PostgreSQLLinkingCodeRepository) MarkUsed(
	ctx context.Context,
	codeID uuid.UUID,
	usedAt time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE linking_codes
			  SET used_at = $1
			  WHERE id = $2 AND used_at IS NULL`

	result, err := querier.ExecContext(ctx, query, usedAt, codeID)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark linking code used")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		return identityDomain.ErrLinkingCodeInvalid
	}
	return nil
}

// DeleteExpired removes codes past their expiry. Returns the number of codes
// removed.
func (p *PostgreSQLLinkingCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM linking_codes WHERE expires_at <= $1`

	result, err := querier.ExecContext(ctx, query, now)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired linking codes")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return affected, nil
}

// NewPostgreSQLLinkingCodeRepository creates a new PostgreSQL LinkingCode repository instance.
func NewPostgreSQLLinkingCodeRepository(db *sql.DB) *PostgreSQLLinkingCodeRepository {
	return &PostgreSQLLinkingCodeRepository{db: db}
}
