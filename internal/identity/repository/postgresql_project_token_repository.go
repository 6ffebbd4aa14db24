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

// PostgreSQLProjectTokenRepository implements ProjectToken persistence for PostgreSQL.
type PostgreSQLProjectTokenRepository struct {
	db *sql.DB
}

// Create inserts a new project token record.
func (p *PostgreSQLProjectTokenRepository) Create(ctx context.Context, token *identityDomain.ProjectToken) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO project_tokens (id, project_id, name, token_prefix, identity_id_hash, encrypted_project_key, expires_at, last_used_at, created_by, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := querier.ExecContext(
		ctx,
		query,
		token.ID,
		token.ProjectID,
		token.Name,
		token.TokenPrefix,
		token.IdentityIDHash,
		token.EncryptedProjectKey,
		token.ExpiresAt,
		token.LastUsedAt,
		token.CreatedBy,
		token.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create project token")
	}
	return nil
}

// GetByIdentityHash retrieves a token by its identity id hash, the only
// lookup the authentication path performs.
func (p *PostgreSQLProjectTokenRepository) GetByIdentityHash(
	ctx context.Context,
	identityIDHash string,
) (*identityDomain.ProjectToken, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, project_id, name, token_prefix, identity_id_hash, encrypted_project_key, expires_at, last_used_at, created_by, created_at
			  FROM project_tokens
			  WHERE identity_id_hash = $1`

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
func (p *PostgreSQLProjectTokenRepository) ListByProject(
	ctx context.Context,
	projectID uuid.UUID,
	offset, limit int,
) ([]*identityDomain.ProjectToken, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, project_id, name, token_prefix, identity_id_hash, encrypted_project_key, expires_at, last_used_at, created_by, created_at
			  FROM project_tokens
			  WHERE project_id = $1
			  ORDER BY created_at, id
			  LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, projectID, limit, offset)
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
func (p *PostgreSQLProjectTokenRepository) TouchLastUsed(ctx context.Context, tokenID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE project_tokens SET last_used_at = $1 WHERE id = $2`

	_, err := querier.ExecContext(ctx, query, time.Now().UTC(), tokenID)
	if err != nil {
		return apperrors.Wrap(err, "failed to touch project token")
	}
	return nil
}

// Delete revokes a single token.
func (p *PostgreSQLProjectTokenRepository) Delete(ctx context.Context, tokenID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM project_tokens WHERE id = $1`

	result, err := querier.ExecContext(ctx, query, tokenID)
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

// DeleteByProject revokes every token of a project. Called from the rotation
// commit transaction: tokens hold the project key wrapped to their own
// keypair, so a committed rotation makes all of them worthless.
func (p *PostgreSQLProjectTokenRepository) DeleteByProject(
	ctx context.Context,
	projectID uuid.UUID,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM project_tokens WHERE project_id = $1`

	result, err := querier.ExecContext(ctx, query, projectID)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete project tokens")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return affected, nil
}

// NewPostgreSQLProjectTokenRepository creates a new PostgreSQL ProjectToken repository instance.
func NewPostgreSQLProjectTokenRepository(db *sql.DB) *PostgreSQLProjectTokenRepository {
	return &PostgreSQLProjectTokenRepository{db: db}
}
