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

// MySQLDeviceRepository implements Device persistence for MySQL.
type MySQLDeviceRepository struct {
	db *sql.DB
}

// Create inserts a new device.
func (m *MySQLDeviceRepository) Create(ctx context.Context, device *identityDomain.Device) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO devices (id, user_id, name, public_key, encrypted_master_key, last_active, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := device.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal device id")
	}

	userID, err := device.UserID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		userID,
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
func (m *MySQLDeviceRepository) GetByID(
	ctx context.Context,
	deviceID uuid.UUID,
) (*identityDomain.Device, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, user_id, name, public_key, encrypted_master_key, last_active, created_at, updated_at
			  FROM devices
			  WHERE id = ?`

	id, err := deviceID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal device id")
	}

	var device identityDomain.Device
	err = querier.QueryRowContext(ctx, query, id).Scan(
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
func (m *MySQLDeviceRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*identityDomain.Device, error) {
	return m.listByUser(ctx, userID, false)
}

// ListApprovedByUser retrieves the user's devices that hold a wrapped master key.
func (m *MySQLDeviceRepository) ListApprovedByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*identityDomain.Device, error) {
	return m.listByUser(ctx, userID, true)
}

func (m *MySQLDeviceRepository) listByUser(
	ctx context.Context,
	userID uuid.UUID,
	approvedOnly bool,
) ([]*identityDomain.Device, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, user_id, name, public_key, encrypted_master_key, last_active, created_at, updated_at
			  FROM devices
			  WHERE user_id = ?`
	if approvedOnly {
		query += ` AND encrypted_master_key IS NOT NULL`
	}
	query += ` ORDER BY created_at, id`

	id, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}

	rows, err := querier.QueryContext(ctx, query, id)
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
// ErrDeviceAlreadyApproved when the device already holds one.
func (m *MySQLDeviceRepository) Approve(
	ctx context.Context,
	deviceID uuid.UUID,
	encryptedMasterKey string,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE devices
			  SET encrypted_master_key = ?, updated_at = ?
			  WHERE id = ? AND encrypted_master_key IS NULL`

	id, err := deviceID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal device id")
	}

	result, err := querier.ExecContext(ctx, query, encryptedMasterKey, time.Now().UTC(), id)
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
func (m *MySQLDeviceRepository) UpdateEncryptedMasterKey(
	ctx context.Context,
	deviceID uuid.UUID,
	encryptedMasterKey string,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE devices
			  SET encrypted_master_key = ?, updated_at = ?
			  WHERE id = ?`

	id, err := deviceID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal device id")
	}

	result, err := querier.ExecContext(ctx, query, encryptedMasterKey, time.Now().UTC(), id)
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
func (m *MySQLDeviceRepository) TouchLastActive(ctx context.Context, deviceID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE devices SET last_active = ? WHERE id = ?`

	id, err := deviceID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal device id")
	}

	_, err = querier.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to touch device")
	}
	return nil
}

// Delete removes a device.
func (m *MySQLDeviceRepository) Delete(ctx context.Context, deviceID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM devices WHERE id = ?`

	id, err := deviceID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal device id")
	}

	result, err := querier.ExecContext(ctx, query, id)
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

// NewMySQLDeviceRepository creates a new MySQL Device repository instance.
func NewMySQLDeviceRepository(db *sql.DB) *MySQLDeviceRepository {
	return &MySQLDeviceRepository{db: db}
}
