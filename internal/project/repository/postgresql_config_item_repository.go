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

// PostgreSQLConfigItemRepository implements ConfigItem persistence for PostgreSQL.
type PostgreSQLConfigItemRepository struct {
	db *sql.DB
}

// Create inserts a new config item.
func (p *PostgreSQLConfigItemRepository) Create(ctx context.Context, item *projectDomain.ConfigItem) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO config_items (id, project_id, name, value_ciphertext, position, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier.ExecContext(
		ctx,
		query,
		item.ID,
		item.ProjectID,
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
// The checksum canonicalization depends on this exact ordering.
func (p *PostgreSQLConfigItemRepository) ListByProject(
	ctx context.Context,
	projectID uuid.UUID,
) ([]*projectDomain.ConfigItem, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, project_id, name, value_ciphertext, position, created_at, updated_at
			  FROM config_items
			  WHERE project_id = $1
			  ORDER BY position, created_at, id`

	rows, err := querier.QueryContext(ctx, query, projectID)
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

// UpdateValueCiphertext replaces the ciphertext of one config item. Used by
// the rotation commit to apply the re-encrypted snapshot.
func (p *PostgreSQLConfigItemRepository) UpdateValueCiphertext(
	ctx context.Context,
	itemID uuid.UUID,
	valueCiphertext string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE config_items
			  SET value_ciphertext = $1, updated_at = $2
			  WHERE id = $3`

	result, err := querier.ExecContext(ctx, query, valueCiphertext, time.Now().UTC(), itemID)
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
func (p *PostgreSQLConfigItemRepository) Delete(ctx context.Context, itemID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM config_items WHERE id = $1`

	result, err := querier.ExecContext(ctx, query, itemID)
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

// NewPostgreSQLConfigItemRepository creates a new PostgreSQL ConfigItem repository instance.
func NewPostgreSQLConfigItemRepository(db *sql.DB) *PostgreSQLConfigItemRepository {
	return &PostgreSQLConfigItemRepository{db: db}
}
