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

// MySQLLinkingCodeRepository implements LinkingCode persistence for MySQL.
type MySQLLinkingCodeRepository struct {
	db *sql.DB
}

// Create inserts a new linking code.
func (m *MySQLLinkingCodeRepository) Create(ctx context.Context, code *identityDomain.LinkingCode) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO linking_codes (id, code_hash, user_id, device_public_key, expires_at, used_at, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	id, err := code.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal linking code id")
	}

	userID, err := code.UserID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		code.CodeHash,
		userID,
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

// ListRedeemable retrieves unused, unexpired codes.
func (m *MySQLLinkingCodeRepository) ListRedeemable(
	ctx context.Context,
	now time.Time,
) ([]*identityDomain.LinkingCode, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, code_hash, user_id, device_public_key, expires_at, used_at, created_at
			  FROM linking_codes
			  WHERE used_at IS NULL AND expires_at > ?
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
// already consumed.
func (m *MySQLLinkingCodeRepository) MarkUsed(
	ctx context.Context,
	codeID uuid.UUID,
	usedAt time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE linking_codes
			  SET used_at = ?
			  WHERE id = ? AND used_at IS NULL`

	id, err := codeID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal linking code id")
	}

	result, err := querier.ExecContext(ctx, query, usedAt, id)
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

// DeleteExpired removes codes past their expiry.
func (m *MySQLLinkingCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM linking_codes WHERE expires_at <= ?`

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

// NewMySQLLinkingCodeRepository creates a new MySQL LinkingCode repository instance.
func NewMySQLLinkingCodeRepository(db *sql.DB) *MySQLLinkingCodeRepository {
	return &MySQLLinkingCodeRepository{db: db}
}
