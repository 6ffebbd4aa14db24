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

// MySQLProjectTokenRepository implements ProjectToken persistence for MySQL.
type MySQLProjectTokenRepository struct {
	db *sql.DB
}

// Create inserts a new project token record.
func (m *MySQLProjectTokenRepository) Create(ctx context.Context, token *identityDomain.ProjectToken) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO project_tokens (id, project_id, name, token_prefix, identity_id_hash, encrypted_project_key, expires_at, last_used_at, created_by, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := token.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal token id")
	}

	projectID, err := token.ProjectID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal project id")
	}

	createdBy, err := token.CreatedBy.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal creator id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		projectID,
		token.Name,
		token.TokenPrefix,
		token.IdentityIDHash,
		token.EncryptedProjectKey,
		token.ExpiresAt,
		token.LastUsedAt,
		createdBy,
		token.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create project token")
	}
	return nil
}

// GetByIdentityHash retrieves a token by its identity id hash.
func (m *MySQLProjectTokenRepository) GetByIdentityHash(
	ctx context.Context,
	identityIDHash string,
) (*identityDomain.ProjectToken, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, project_id, name, token_prefix, identity_id_hash, encrypted_project_key, expires_at, last_used_at, created_by, created_at
			  FROM project_tokens
			  WHERE identity_id_hash = ?`

	var token identityDomain.ProjectToken
	err := querier.QueryRowContext(ctx, query, identityIDHash).Scan(
		&token.ID,
		&token.ProjectID,
		&token.Name,
		&token.TokenPrefix,
		&token.IdentityIDHash,
		&token.EncryptedProjectKey,
		&token.ExpiresAt,
		&token.LastUsedAt,
		&token.CreatedBy,
		&token.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, identityDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get project token")
	}

	return &token, nil
}

// ListByProject retrieves token metadata for a project.
func (m *MySQLProjectTokenRepository) ListByProject(
	ctx context.Context,
	projectID uuid.UUID,
	offset, limit int,
) ([]*identityDomain.ProjectToken, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, project_id, name, token_prefix, identity_id_hash, encrypted_project_key, expires_at, last_used_at, created_by, created_at
			  FROM project_tokens
			  WHERE project_id = ?
			  ORDER BY created_at, id
			  LIMIT ? OFFSET ?`

	id, err := projectID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal project id")
	}

	rows, err := querier.QueryContext(ctx, query, id, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list project tokens")
	}
	defer func() { _ = rows.Close() }()

	var tokens []*identityDomain.ProjectToken
	for rows.Next() {
		var token identityDomain.ProjectToken
		err := rows.Scan(
			&token.ID,
			&token.ProjectID,
			&token.Name,
			&token.TokenPrefix,
			&token.IdentityIDHash,
			&token.EncryptedProjectKey,
			&token.ExpiresAt,
			&token.LastUsedAt,
			&token.CreatedBy,
			&token.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan project token")
		}
		tokens = append(tokens, &token)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate project tokens")
	}

	return tokens, nil
}

// TouchLastUsed updates the token's last usage timestamp.
func (m *MySQLProjectTokenRepository) TouchLastUsed(ctx context.Context, tokenID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE project_tokens SET last_used_at = ? WHERE id = ?`

	id, err := tokenID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal token id")
	}

	_, err = querier.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to touch project token")
	}
	return nil
}

// Delete revokes a single token.
func (m *MySQLProjectTokenRepository) Delete(ctx context.Context, tokenID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM project_tokens WHERE id = ?`

	id, err := tokenID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal token id")
	}

	result, err := querier.ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete project token")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		return identityDomain.ErrTokenNotFound
	}
	return nil
}

// DeleteByProject revokes every token of a project.
func (m *MySQLProjectTokenRepository) DeleteByProject(
	ctx context.Context,
	projectID uuid.UUID,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM project_tokens WHERE project_id = ?`

	id, err := projectID.MarshalBinary()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to marshal project id")
	}

	result, err := querier.ExecContext(ctx, query, id)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete project tokens")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return affected, nil
}

// NewMySQLProjectTokenRepository creates a new MySQL ProjectToken repository instance.
func NewMySQLProjectTokenRepository(db *sql.DB) *MySQLProjectTokenRepository {
	return &MySQLProjectTokenRepository{db: db}
}
