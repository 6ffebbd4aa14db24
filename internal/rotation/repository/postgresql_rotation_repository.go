// Package repository implements persistence for pending key rotations and
// their approvals. Snapshots travel as JSON text columns; status changes go
// through conditional updates so concurrent deciders cannot both win.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/envie/internal/database"
	apperrors "github.com/allisson/envie/internal/errors"
	rotationDomain "github.com/allisson/envie/internal/rotation/domain"
)

// PostgreSQLRotationRepository implements rotation persistence for PostgreSQL.
type PostgreSQLRotationRepository struct {
	db *sql.DB
}

// Create inserts a new pending rotation with its snapshot.
func (p *PostgreSQLRotationRepository) Create(
	ctx context.Context,
	rotation *rotationDomain.PendingKeyRotation,
) error {
	querier := database.GetTx(ctx, p.db)

	configItems, teamKeys, fileKeys, err := marshalSnapshots(rotation)
	if err != nil {
		return err
	}

	query := `INSERT INTO pending_key_rotations
			  (id, project_id, initiated_by, new_key_version, status, required_approvals,
			   config_checksum, expires_at, config_items_snapshot, team_keys_snapshot,
			   file_keys_snapshot, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = querier.ExecContext(
		ctx,
		query,
		rotation.ID,
		rotation.ProjectID,
		rotation.InitiatedBy,
		rotation.NewKeyVersion,
		rotation.Status,
		rotation.RequiredApprovals,
		rotation.ConfigChecksum,
		rotation.ExpiresAt,
		configItems,
		teamKeys,
		fileKeys,
		rotation.CreatedAt,
		rotation.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create rotation")
	}
	return nil
}

// GetByID retrieves a rotation with its approvals.
func (p *PostgreSQLRotationRepository) GetByID(
	ctx context.Context,
	rotationID uuid.UUID,
) (*rotationDomain.PendingKeyRotation, error) {
	return p.get(ctx, `WHERE id = $1`, false, rotationID)
}

// GetByIDForUpdate retrieves a rotation with a row lock. Approve and reject
// read under this lock so votes serialize.
func (p *PostgreSQLRotationRepository) GetByIDForUpdate(
	ctx context.Context,
	rotationID uuid.UUID,
) (*rotationDomain.PendingKeyRotation, error) {
	return p.get(ctx, `WHERE id = $1`, true, rotationID)
}

// GetPendingByProject retrieves the project's pending rotation, if any.
func (p *PostgreSQLRotationRepository) GetPendingByProject(
	ctx context.Context,
	projectID uuid.UUID,
) (*rotationDomain.PendingKeyRotation, error) {
	return p.get(ctx, `WHERE project_id = $1 AND status = 'pending'`, false, projectID)
}

func (p *PostgreSQLRotationRepository) get(
	ctx context.Context,
	where string,
	forUpdate bool,
	arg any,
) (*rotationDomain.PendingKeyRotation, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, project_id, initiated_by, new_key_version, status, required_approvals,
					 config_checksum, expires_at, config_items_snapshot, team_keys_snapshot,
					 file_keys_snapshot, created_at, updated_at
			  FROM pending_key_rotations ` + where
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		rotation   rotationDomain.PendingKeyRotation
		configJSON string
		teamJSON   string
		fileJSON   string
	)
	err := querier.QueryRowContext(ctx, query, arg).Scan(
		&rotation.ID,
		&rotation.ProjectID,
		&rotation.InitiatedBy,
		&rotation.NewKeyVersion,
		&rotation.Status,
		&rotation.RequiredApprovals,
		&rotation.ConfigChecksum,
		&rotation.ExpiresAt,
		&configJSON,
		&teamJSON,
		&fileJSON,
		&rotation.CreatedAt,
		&rotation.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, rotationDomain.ErrRotationNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get rotation")
	}

	if err := unmarshalSnapshots(&rotation, configJSON, teamJSON, fileJSON); err != nil {
		return nil, err
	}

	approvals, err := p.listApprovals(ctx, rotation.ID)
	if err != nil {
		return nil, err
	}
	rotation.Approvals = approvals

	return &rotation, nil
}

func (p *PostgreSQLRotationRepository) listApprovals(
	ctx context.Context,
	rotationID uuid.UUID,
) ([]*rotationDomain.KeyRotationApproval, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, rotation_id, user_id, approved, verified_decryption, comment, created_at
			  FROM key_rotation_approvals
			  WHERE rotation_id = $1
			  ORDER BY created_at, id`

	rows, err := querier.QueryContext(ctx, query, rotationID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list rotation approvals")
	}
	defer rows.Close()

	var approvals []*rotationDomain.KeyRotationApproval
	for rows.Next() {
		var approval rotationDomain.KeyRotationApproval
		if err := rows.Scan(
			&approval.ID,
			&approval.RotationID,
			&approval.UserID,
			&approval.Approved,
			&approval.VerifiedDecryption,
			&approval.Comment,
			&approval.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan rotation approval")
		}
		approvals = append(approvals, &approval)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate rotation approvals")
	}

	return approvals, nil
}

// CreateApproval records one vote.
func (p *PostgreSQLRotationRepository) CreateApproval(
	ctx context.Context,
	approval *rotationDomain.KeyRotationApproval,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO key_rotation_approvals (id, rotation_id, user_id, approved, verified_decryption, comment, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier.ExecContext(
		ctx,
		query,
		approval.ID,
		approval.RotationID,
		approval.UserID,
		approval.Approved,
		approval.VerifiedDecryption,
		approval.Comment,
		approval.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create rotation approval")
	}
	return nil
}

// UpdateStatusIf transitions the rotation from one status to another. The
// update carries the expected current status in its predicate; zero affected
// rows means another decider got there first.
func (p *PostgreSQLRotationRepository) UpdateStatusIf(
	ctx context.Context,
	rotationID uuid.UUID,
	from, to rotationDomain.Status,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE pending_key_rotations
			  SET status = $1, updated_at = $2
			  WHERE id = $3 AND status = $4`

	result, err := querier.ExecContext(ctx, query, to, time.Now().UTC(), rotationID, from)
	if err != nil {
		return apperrors.Wrap(err, "failed to update rotation status")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check rotation status update")
	}
	if affected == 0 {
		return rotationDomain.ErrRotationFinalized
	}

	return nil
}

// ListPendingForUser returns pending rotations on projects where the user
// holds an admin or owner team role, newest first.
func (p *PostgreSQLRotationRepository) ListPendingForUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*rotationDomain.PendingKeyRotation, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT DISTINCT r.id
			  FROM pending_key_rotations r
			  JOIN team_projects tp ON tp.project_id = r.project_id
			  JOIN team_members tm ON tm.team_id = tp.team_id
			  WHERE r.status = 'pending' AND tm.user_id = $1 AND tm.role IN ('admin', 'owner')
			  ORDER BY r.id DESC`

	rows, err := querier.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list pending rotations")
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan rotation id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate rotation ids")
	}

	rotations := make([]*rotationDomain.PendingKeyRotation, 0, len(ids))
	for _, id := range ids {
		rotation, err := p.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		rotations = append(rotations, rotation)
	}

	return rotations, nil
}

// ExpireSweep marks every overdue pending rotation as expired and returns
// how many were swept.
func (p *PostgreSQLRotationRepository) ExpireSweep(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE pending_key_rotations
			  SET status = $1, updated_at = $2
			  WHERE status = $3 AND expires_at <= $2`

	result, err := querier.ExecContext(ctx, query, rotationDomain.StatusExpired, now, rotationDomain.StatusPending)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to sweep expired rotations")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count swept rotations")
	}

	return affected, nil
}

// NewPostgreSQLRotationRepository creates a new PostgreSQL rotation repository instance.
func NewPostgreSQLRotationRepository(db *sql.DB) *PostgreSQLRotationRepository {
	return &PostgreSQLRotationRepository{db: db}
}

func marshalSnapshots(rotation *rotationDomain.PendingKeyRotation) (string, string, string, error) {
	configItems, err := json.Marshal(rotation.ConfigItems)
	if err != nil {
		return "", "", "", apperrors.Wrap(err, "failed to marshal config items snapshot")
	}
	teamKeys, err := json.Marshal(rotation.TeamKeys)
	if err != nil {
		return "", "", "", apperrors.Wrap(err, "failed to marshal team keys snapshot")
	}
	fileKeys, err := json.Marshal(rotation.FileKeys)
	if err != nil {
		return "", "", "", apperrors.Wrap(err, "failed to marshal file keys snapshot")
	}
	return string(configItems), string(teamKeys), string(fileKeys), nil
}

func unmarshalSnapshots(
	rotation *rotationDomain.PendingKeyRotation,
	configJSON, teamJSON, fileJSON string,
) error {
	if err := json.Unmarshal([]byte(configJSON), &rotation.ConfigItems); err != nil {
		return apperrors.Wrap(err, "failed to unmarshal config items snapshot")
	}
	if err := json.Unmarshal([]byte(teamJSON), &rotation.TeamKeys); err != nil {
		return apperrors.Wrap(err, "failed to unmarshal team keys snapshot")
	}
	if err := json.Unmarshal([]byte(fileJSON), &rotation.FileKeys); err != nil {
		return apperrors.Wrap(err, "failed to unmarshal file keys snapshot")
	}
	return nil
}
