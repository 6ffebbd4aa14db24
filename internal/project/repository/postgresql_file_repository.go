package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/envie/internal/database"
	apperrors "github.com/allisson/envie/internal/errors"
	projectDomain "github.com/allisson/envie/internal/project/domain"
)

// PostgreSQLFileRepository implements ProjectFile persistence for PostgreSQL.
type PostgreSQLFileRepository struct {
	db *sql.DB
}

// Create inserts a new project file record.
func (p *PostgreSQLFileRepository) Create(ctx context.Context, file *projectDomain.ProjectFile) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO project_files (id, project_id, name, size_bytes, encrypted_file_key, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier.ExecContext(
		ctx,
		query,
		file.ID,
		file.ProjectID,
		file.Name,
		file.SizeBytes,
		file.EncryptedFileKey,
		file.CreatedAt,
		file.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create project file")
	}
	return nil
}

// ListByProject returns all file records of a project.
func (p *PostgreSQLFileRepository) ListByProject(
	ctx context.Context,
	projectID uuid.UUID,
) ([]*projectDomain.ProjectFile, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, project_id, name, size_bytes, encrypted_file_key, created_at, updated_at
			  FROM project_files
			  WHERE project_id = $1
			  ORDER BY created_at, id`

	rows, err := querier.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list project files")
	}
	defer rows.Close()

	var files []*projectDomain.ProjectFile
	for rows.Next() {
		var file projectDomain.ProjectFile
		if err := rows.Scan(
			&file.ID,
			&file.ProjectID,
			&file.Name,
			&file.SizeBytes,
			&file.EncryptedFileKey,
			&file.CreatedAt,
			&file.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan project file")
		}
		files = append(files, &file)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate project files")
	}

	return files, nil
}

// UpdateFileKey replaces the wrapped file encryption key. Used by the
// rotation commit to apply re-wrapped FEKs.
func (p *PostgreSQLFileRepository) UpdateFileKey(
	ctx context.Context,
	fileID uuid.UUID,
	encryptedFileKey string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE project_files
			  SET encrypted_file_key = $1, updated_at = $2
			  WHERE id = $3`

	result, err := querier.ExecContext(ctx, query, encryptedFileKey, time.Now().UTC(), fileID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update project file key")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check project file update")
	}
	if affected == 0 {
		return projectDomain.ErrFileNotFound
	}

	return nil
}

// NewPostgreSQLFileRepository creates a new PostgreSQL ProjectFile repository instance.
func NewPostgreSQLFileRepository(db *sql.DB) *PostgreSQLFileRepository {
	return &PostgreSQLFileRepository{db: db}
}
