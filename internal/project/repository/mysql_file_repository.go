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

// MySQLFileRepository implements ProjectFile persistence for MySQL.
type MySQLFileRepository struct {
	db *sql.DB
}

// Create inserts a new project file record.
func (m *MySQLFileRepository) Create(ctx context.Context, file *projectDomain.ProjectFile) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO project_files (id, project_id, name, size_bytes, encrypted_file_key, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	id, err := file.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal file id")
	}

	projectID, err := file.ProjectID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal project id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		projectID,
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
func (m *MySQLFileRepository) ListByProject(
	ctx context.Context,
	projectID uuid.UUID,
) ([]*projectDomain.ProjectFile, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, project_id, name, size_bytes, encrypted_file_key, created_at, updated_at
			  FROM project_files
			  WHERE project_id = ?
			  ORDER BY created_at, id`

	id, err := projectID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal project id")
	}

	rows, err := querier.QueryContext(ctx, query, id)
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

// UpdateFileKey replaces the wrapped file encryption key.
func (m *MySQLFileRepository) UpdateFileKey(
	ctx context.Context,
	fileID uuid.UUID,
	encryptedFileKey string,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE project_files
			  SET encrypted_file_key = ?, updated_at = ?
			  WHERE id = ?`

	id, err := fileID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal file id")
	}

	result, err := querier.ExecContext(ctx, query, encryptedFileKey, time.Now().UTC(), id)
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

// NewMySQLFileRepository creates a new MySQL ProjectFile repository instance.
func NewMySQLFileRepository(db *sql.DB) *MySQLFileRepository {
	return &MySQLFileRepository{db: db}
}
