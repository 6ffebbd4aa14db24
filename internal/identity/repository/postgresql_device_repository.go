// Package repository implements persistence for the identity registry:
// devices, user master keys, linking codes and project tokens. Repositories
// support both PostgreSQL and MySQL and participate in context-propagated
// transactions.
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

// PostgreSQLDeviceRepository implements Device persistence for PostgreSQL.
type PostgreSQLDeviceRepository struct {
	db *sql.DB
}

// Create inserts a new device. A device registers pending, with no wrapped
// master key.
func (p *PostgreSQLDeviceRepository) Create(ctx context.Context, device *identityDomain.Device) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO devices (id, user_id, name, public_key, encrypted_master_key, last_active, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		device.ID,
		device.UserID,
		device.Name,
		device.PublicKey,
		device.EncryptedMasterKey,
		device.LastActive,
		device.CreatedAt,
		device.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create device")
	}
	return nil
}

// GetByID retrieves a device by its identifier.
func (p *PostgreSQLDeviceRepository) GetByID(
	ctx context.Context,
	deviceID uuid.UUID,
) (*identityDomain.Device, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, user_id, name, public_key, encrypted_master_key, last_active, created_at, updated_at
			  FROM devices
			  WHERE id = $1`

	var device identityDomain.Device
	err := querier.QueryRowContext(ctx, query, deviceID).Scan(
		&device.ID,
		&device.UserID,
		&device.Name,
		&device.PublicKey,
		&device.EncryptedMasterKey,
		&device.LastActive,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, identityDomain.ErrDeviceNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get device")
	}

	return &device, nil
}

// ListByUser retrieves every device registered by a user, pending included.
func (p *PostgreSQLDeviceRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*identityDomain.Device, error) {
	return p.listByUser(ctx, userID, false)
}

// ListApprovedByUser retrieves the user's devices that hold a wrapped master
// key. Master key rotation must cover exactly this set.
func (p *PostgreSQLDeviceRepository) ListApprovedByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*identityDomain.Device, error) {
	return p.listByUser(ctx, userID, true)
}

func (p *PostgreSQLDeviceRepository) listByUser(
	ctx context.Context,
	userID uuid.UUID,
	approvedOnly bool,
) ([]*identityDomain.Device, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, user_id, name, public_key, encrypted_master_key, last_active, created_at, updated_at
			  FROM devices
			  WHERE user_id = $1`
	if approvedOnly {
		query += ` AND encrypted_master_key IS NOT NULL`
	}
	query += ` ORDER BY created_at, id`

	rows, err := querier.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list devices")
	}
	defer func() { _ = rows.Close() }()

	var devices []*identityDomain.Device
	for rows.Next() {
		var device identityDomain.Device
		err := rows.Scan(
			&device.ID,
			&device.UserID,
			&device.Name,
			&device.PublicKey,
			&device.EncryptedMasterKey,
			&device.LastActive,
			&device.CreatedAt,
			&device.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan device")
		}
		devices = append(devices, &device)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate devices")
	}

	return devices, nil
}

// Approve stores the wrapped master key on a pending device. Returns
// ErrDeviceAlreadyApproved when the device already holds one; the first
// approval wins.
func (p *PostgreSQLDeviceRepository) Approve(
	ctx context.Context,
	deviceID uuid.UUID,
	encryptedMasterKey string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE devices
			  SET encrypted_master_key = $1, updated_at = $2
			  WHERE id = $3 AND encrypted_master_key IS NULL`

	result, err := querier.ExecContext(ctx, query, encryptedMasterKey, time.Now().UTC(), deviceID)
	if err != nil {
		return apperrors.Wrap(err, "failed to approve device")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		return identityDomain.ErrDeviceAlreadyApproved
	}
	return nil
}

// UpdateEncryptedMasterKey replaces the wrapped master key unconditionally.
// Called from the master key rotation transaction for every approved device.
func (p *PostgreSQLDeviceRepository) UpdateEncryptedMasterKey(
	ctx context.Context,
	deviceID uuid.UUID,
	encryptedMasterKey string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE devices
			  SET encrypted_master_key = $1, updated_at = $2
			  WHERE id = $3`

	result, err := querier.ExecContext(ctx, query, encryptedMasterKey, time.Now().UTC(), deviceID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update device master key")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		return identityDomain.ErrDeviceNotFound
	}
	return nil
}

// TouchLastActive updates the device's last activity timestamp.
func (p *PostgreSQLDeviceRepository) TouchLastActive(ctx context.Context, deviceID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE devices SET last_active = $1 WHERE id = $2`

	_, err := querier.ExecContext(ctx, query, time.Now().UTC(), deviceID)
	if err != nil {
		return apperrors.Wrap(err, "failed to touch device")
	}
	return nil
}

// Delete removes a device. Revoking a device does not rotate any key; the
// master key it held is only protected again after a master key rotation.
func (p *PostgreSQLDeviceRepository) Delete(ctx context.Context, deviceID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM devices WHERE id = $1`

	result, err := querier.ExecContext(ctx, query, deviceID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete device")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		return identityDomain.ErrDeviceNotFound
	}
	return nil
}

// NewPostgreSQLDeviceRepository creates a new PostgreSQL Device repository instance.
func NewPostgreSQLDeviceRepository(db *sql.DB) *PostgreSQLDeviceRepository {
	return &PostgreSQLDeviceRepository{db: db}
}
