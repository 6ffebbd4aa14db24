package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/envie/internal/database"
	apperrors "github.com/allisson/envie/internal/errors"
	rotationDomain "github.com/allisson/envie/internal/rotation/domain"
)

// MySQLRotationRepository implements rotation persistence for MySQL.
type MySQLRotationRepository struct {
	db *sql.DB
}

// Create inserts a new pending rotation with its snapshot.
func (m *MySQLRotationRepository) Create(
	ctx context.Context,
	rotation *rotationDomain.PendingKeyRotation,
) error {
	querier := database.GetTx(ctx, m.db)

	configItems, teamKeys, fileKeys, err := marshalSnapshots(rotation)
	if err != nil {
		return err
	}

	id, err := rotation.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal rotation id")
	}
	projectID, err := rotation.ProjectID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal project id")
	}
	initiatedBy, err := rotation.InitiatedBy.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal initiator id")
	}

	query := `INSERT INTO pending_key_rotations
			  (id, project_id, initiated_by, new_key_version, status, required_approvals,
			   config_checksum, expires_at, config_items_snapshot, team_keys_snapshot,
			   file_keys_snapshot, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		projectID,
		initiatedBy,
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
func (m *MySQLRotationRepository) GetByID(
	ctx context.Context,
	rotationID uuid.UUID,
) (*rotationDomain.PendingKeyRotation, error) {
	id, err := rotationID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal rotation id")
	}
	return m.get(ctx, `WHERE id = ?`, false, id)
}

// GetByIDForUpdate retrieves a rotation with a row lock.
func (m *MySQLRotationRepository) GetByIDForUpdate(
	ctx context.Context,
	rotationID uuid.UUID,
) (*rotationDomain.PendingKeyRotation, error) {
	id, err := rotationID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal rotation id")
	}
	return m.get(ctx, `WHERE id = ?`, true, id)
}

// GetPendingByProject retrieves the project's pending rotation, if any.
func (m *MySQLRotationRepository) GetPendingByProject(
	ctx context.Context,
	projectID uuid.UUID,
) (*rotationDomain.PendingKeyRotation, error) {
	id, err := projectID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal project id")
	}
	return m.get(ctx, `WHERE project_id = ? AND status = 'pending'`, false, id)
}

func (m *MySQLRotationRepository) get(
	ctx context.Context,
	where string,
	forUpdate bool,
	arg any,
) (*rotationDomain.PendingKeyRotation, error) {
	querier := database.GetTx(ctx, m.db)

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

	approvals, err := m.listApprovals(ctx, rotation.ID)
	if err != nil {
		return nil, err
	}
	rotation.Approvals = approvals

	return &rotation, nil
}

func (m *MySQLRotationRepository) listApprovals(
	ctx context.Context,
	rotationID uuid.UUID,
) ([]*rotationDomain.KeyRotationApproval, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := rotationID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal rotation id")
	}

	query := `SELECT id, rotation_id, user_id, approved, verified_decryption, comment, created_at
			  FROM key_rotation_approvals
			  WHERE rotation_id = ?
			  ORDER BY created_at, id`

	rows, err := querier.QueryContext(ctx, query, id)
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
func (m *MySQLRotationRepository) CreateApproval(
	ctx context.Context,
	approval *rotationDomain.KeyRotationApproval,
) error {
	querier := database.GetTx(ctx, m.db)

	id, err := approval.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal approval id")
	}
	rotationID, err := approval.RotationID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal rotation id")
	}
	userID, err := approval.UserID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	query := `INSERT INTO key_rotation_approvals (id, rotation_id, user_id, approved, verified_decryption, comment, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		rotationID,
		userID,
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

// UpdateStatusIf transitions the rotation from one status to another.
func (m *MySQLRotationRepository) UpdateStatusIf(
	ctx context.Context,
	rotationID uuid.UUID,
	from, to rotationDomain.Status,
) error {
	querier := database.GetTx(ctx, m.db)

	id, err := rotationID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal rotation id")
	}

	query := `UPDATE pending_key_rotations
			  SET status = ?, updated_at = ?
			  WHERE id = ? AND status = ?`

	result, err := querier.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
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
func (m *MySQLRotationRepository) ListPendingForUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*rotationDomain.PendingKeyRotation, error) {
	querier := database.GetTx(ctx, m.db)

	uid, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}

	query := `SELECT DISTINCT r.id
			  FROM pending_key_rotations r
			  JOIN team_projects tp ON tp.project_id = r.project_id
			  JOIN team_members tm ON tm.team_id = tp.team_id
			  WHERE r.status = 'pending' AND tm.user_id = ? AND tm.role IN ('admin', 'owner')
			  ORDER BY r.id DESC`

	rows, err := querier.QueryContext(ctx, query, uid)
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
		rotation, err := m.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		rotations = append(rotations, rotation)
	}

	return rotations, nil
}

// ExpireSweep marks every overdue pending rotation as expired and returns
// how many were swept.
func (m *MySQLRotationRepository) ExpireSweep(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE pending_key_rotations
			  SET status = ?, updated_at = ?
			  WHERE status = ? AND expires_at <= ?`

	result, err := querier.ExecContext(ctx, query, rotationDomain.StatusExpired, now, rotationDomain.StatusPending, now)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to sweep expired rotations")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count swept rotations")
	}

	return affected, nil
}

// NewMySQLRotationRepository creates a new MySQL rotation repository instance.
func NewMySQLRotationRepository(db *sql.DB) *MySQLRotationRepository {
	return &MySQLRotationRepository{db: db}
}
