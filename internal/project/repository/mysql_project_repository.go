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

// MySQLProjectRepository implements Project persistence for MySQL.
type MySQLProjectRepository struct {
	db *sql.DB
}

// Create inserts a new project.
func (m *MySQLProjectRepository) Create(ctx context.Context, project *projectDomain.Project) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO projects (id, organization_id, name, key_version, config_checksum, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	id, err := project.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal project id")
	}

	orgID, err := project.OrganizationID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal organization id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		orgID,
		project.Name,
		project.KeyVersion,
		project.ConfigChecksum,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create project")
	}
	return nil
}

// GetByID retrieves a project by its identifier.
func (m *MySQLProjectRepository) GetByID(
	ctx context.Context,
	projectID uuid.UUID,
) (*projectDomain.Project, error) {
	return m.getByID(ctx, projectID, false)
}

// GetByIDForUpdate retrieves a project with a row lock.
func (m *MySQLProjectRepository) GetByIDForUpdate(
	ctx context.Context,
	projectID uuid.UUID,
) (*projectDomain.Project, error) {
	return m.getByID(ctx, projectID, true)
}

func (m *MySQLProjectRepository) getByID(
	ctx context.Context,
	projectID uuid.UUID,
	forUpdate bool,
) (*projectDomain.Project, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, organization_id, name, key_version, config_checksum, created_at, updated_at
			  FROM projects
			  WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	id, err := projectID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal project id")
	}

	var project projectDomain.Project
	err = querier.QueryRowContext(ctx, query, id).Scan(
		&project.ID,
		&project.OrganizationID,
		&project.Name,
		&project.KeyVersion,
		&project.ConfigChecksum,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, projectDomain.ErrProjectNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get project")
	}

	return &project, nil
}

// UpdateKeyState sets the key version and config checksum in one statement.
func (m *MySQLProjectRepository) UpdateKeyState(
	ctx context.Context,
	projectID uuid.UUID,
	keyVersion uint,
	configChecksum string,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE projects
			  SET key_version = ?, config_checksum = ?, updated_at = ?
			  WHERE id = ?`

	id, err := projectID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal project id")
	}

	_, err = querier.ExecContext(ctx, query, keyVersion, configChecksum, time.Now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update project key state")
	}
	return nil
}

// UpdateConfigChecksum refreshes the stored checksum after a config write.
func (m *MySQLProjectRepository) UpdateConfigChecksum(
	ctx context.Context,
	projectID uuid.UUID,
	configChecksum string,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE projects
			  SET config_checksum = ?, updated_at = ?
			  WHERE id = ?`

	id, err := projectID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal project id")
	}

	_, err = querier.ExecContext(ctx, query, configChecksum, time.Now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update project config checksum")
	}
	return nil
}

// NewMySQLProjectRepository creates a new MySQL Project repository instance.
func NewMySQLProjectRepository(db *sql.DB) *MySQLProjectRepository {
	return &MySQLProjectRepository{db: db}
}
