// Package repository implements persistence for projects, config items,
// files and team access paths. Repositories support both PostgreSQL and
// MySQL and participate in context-propagated transactions.
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

// PostgreSQLProjectRepository implements Project persistence for PostgreSQL.
type PostgreSQLProjectRepository struct {
	db *sql.DB
}

// Create inserts a new project.
func (p *PostgreSQLProjectRepository) Create(ctx context.Context, project *projectDomain.Project) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO projects (id, organization_id, name, key_version, config_checksum, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier.ExecContext(
		ctx,
		query,
		project.ID,
		project.OrganizationID,
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
func (p *PostgreSQLProjectRepository) GetByID(
	ctx context.Context,
	projectID uuid.UUID,
) (*projectDomain.Project, error) {
	return p.getByID(ctx, projectID, false)
}

// GetByIDForUpdate retrieves a project with a row lock. Rotation approval
// recomputes the config checksum under this lock so no config write can race
// the commit.
func (p *PostgreSQLProjectRepository) GetByIDForUpdate(
	ctx context.Context,
	projectID uuid.UUID,
) (*projectDomain.Project, error) {
	return p.getByID(ctx, projectID, true)
}

func (p *PostgreSQLProjectRepository) getByID(
	ctx context.Context,
	projectID uuid.UUID,
	forUpdate bool,
) (*projectDomain.Project, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, organization_id, name, key_version, config_checksum, created_at, updated_at
			  FROM projects
			  WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var project projectDomain.Project
	err := querier.QueryRowContext(ctx, query, projectID).Scan(
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
// Called from the rotation commit transaction.
func (p *PostgreSQLProjectRepository) UpdateKeyState(
	ctx context.Context,
	projectID uuid.UUID,
	keyVersion uint,
	configChecksum string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE projects
			  SET key_version = $1, config_checksum = $2, updated_at = $3
			  WHERE id = $4`

	_, err := querier.ExecContext(ctx, query, keyVersion, configChecksum, time.Now().UTC(), projectID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update project key state")
	}
	return nil
}

// UpdateConfigChecksum refreshes the stored checksum after a config write.
func (p *PostgreSQLProjectRepository) UpdateConfigChecksum(
	ctx context.Context,
	projectID uuid.UUID,
	configChecksum string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE projects
			  SET config_checksum = $1, updated_at = $2
			  WHERE id = $3`

	_, err := querier.ExecContext(ctx, query, configChecksum, time.Now().UTC(), projectID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update project config checksum")
	}
	return nil
}

// NewPostgreSQLProjectRepository creates a new PostgreSQL Project repository instance.
func NewPostgreSQLProjectRepository(db *sql.DB) *PostgreSQLProjectRepository {
	return &PostgreSQLProjectRepository{db: db}
}
