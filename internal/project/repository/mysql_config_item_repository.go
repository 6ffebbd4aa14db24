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

// MySQLConfigItemRepository implements ConfigItem persistence for MySQL.
type MySQLConfigItemRepository struct {
	db *sql.DB
}

// Create inserts a new config item.
func (m *MySQLConfigItemRepository) Create(ctx context.Context, item *projectDomain.ConfigItem) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO config_items (id, project_id, name, value_ciphertext, position, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	id, err := item.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal config item id")
	}

	projectID, err := item.ProjectID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal project id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		projectID,
		item.Name,
		item.ValueCiphertext,
		item.Position,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create config item")
	}
	return nil
}

// ListByProject returns all config items of a project in persisted order.
func (m *MySQLConfigItemRepository) ListByProject(
	ctx context.Context,
	projectID uuid.UUID,
) ([]*projectDomain.ConfigItem, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, project_id, name, value_ciphertext, position, created_at, updated_at
			  FROM config_items
			  WHERE project_id = ?
			  ORDER BY position, created_at, id`

	id, err := projectID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal project id")
	}

	rows, err := querier.QueryContext(ctx, query, id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list config items")
	}
	defer rows.Close()

	var items []*projectDomain.ConfigItem
	for rows.Next() {
		var item projectDomain.ConfigItem
		if err := rows.Scan(
			&item.ID,
			&item.ProjectID,
			&item.Name,
			&item.ValueCiphertext,
			&item.Position,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan config item")
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate config items")
	}

	return items, nil
}

// UpdateValueCiphertext replaces the ciphertext of one config item.
func (m *MySQLConfigItemRepository) UpdateValueCiphertext(
	ctx context.Context,
	itemID uuid.UUID,
	valueCiphertext string,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE config_items
			  SET value_ciphertext = ?, updated_at = ?
			  WHERE id = ?`

	id, err := itemID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal config item id")
	}

	result, err := querier.ExecContext(ctx, query, valueCiphertext, time.Now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update config item ciphertext")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check config item update")
	}
	if affected == 0 {
		return projectDomain.ErrConfigItemNotFound
	}

	return nil
}

// Delete removes a config item.
func (m *MySQLConfigItemRepository) Delete(ctx context.Context, itemID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM config_items WHERE id = ?`

	id, err := itemID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal config item id")
	}

	result, err := querier.ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete config item")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check config item deletion")
	}
	if affected == 0 {
		return projectDomain.ErrConfigItemNotFound
	}

	return nil
}

// NewMySQLConfigItemRepository creates a new MySQL ConfigItem repository instance.
func NewMySQLConfigItemRepository(db *sql.DB) *MySQLConfigItemRepository {
	return &MySQLConfigItemRepository{db: db}
}
