package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/envie/internal/checksum"
	"github.com/allisson/envie/internal/database"
	apperrors "github.com/allisson/envie/internal/errors"
	keychainDomain "github.com/allisson/envie/internal/keychain/domain"
	projectDomain "github.com/allisson/envie/internal/project/domain"
)

type configUseCase struct {
	txManager   database.TxManager
	projects    ProjectRepository
	configItems ConfigItemRepository
	files       FileRepository
	teams       TeamRepository
}

// access resolves the user's path to the project key. No path means the user
// is not entitled, regardless of whether the project exists; existence is not
// leaked to strangers.
func (u *configUseCase) access(
	ctx context.Context,
	projectID, userID uuid.UUID,
) (*keychainDomain.ProjectAccess, error) {
	access, err := u.teams.GetProjectAccess(ctx, projectID, userID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, keychainDomain.ErrNotEntitled
		}
		return nil, err
	}
	if access.EncryptedTeamKey == nil && access.EncryptedOrgKey == nil {
		return nil, keychainDomain.ErrNotEntitled
	}
	return access, nil
}

// GetProject returns project metadata after an entitlement check.
func (u *configUseCase) GetProject(
	ctx context.Context,
	projectID, userID uuid.UUID,
) (*projectDomain.Project, error) {
	if _, err := u.access(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return u.projects.GetByID(ctx, projectID)
}

// GetAccess returns the wrapped keys for the user's path to the project key.
func (u *configUseCase) GetAccess(
	ctx context.Context,
	projectID, userID uuid.UUID,
) (*keychainDomain.ProjectAccess, error) {
	return u.access(ctx, projectID, userID)
}

// ListItems returns the project's config items in persisted order.
func (u *configUseCase) ListItems(
	ctx context.Context,
	projectID, userID uuid.UUID,
) ([]*projectDomain.ConfigItem, error) {
	if _, err := u.access(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return u.configItems.ListByProject(ctx, projectID)
}

// SetItem creates or replaces one named config value. The stored checksum is
// recomputed from the post-write item list inside the same transaction, so a
// concurrent rotation proposal pinned to the old checksum goes stale.
func (u *configUseCase) SetItem(
	ctx context.Context,
	projectID, userID uuid.UUID,
	name, valueCiphertext string,
) (*projectDomain.ConfigItem, error) {
	if _, err := u.access(ctx, projectID, userID); err != nil {
		return nil, err
	}

	var result *projectDomain.ConfigItem

	err := u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := u.projects.GetByIDForUpdate(txCtx, projectID); err != nil {
			return err
		}

		items, err := u.configItems.ListByProject(txCtx, projectID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, item := range items {
			if item.Name != name {
				continue
			}
			if err := u.configItems.UpdateValueCiphertext(txCtx, item.ID, valueCiphertext); err != nil {
				return err
			}
			item.ValueCiphertext = valueCiphertext
			item.UpdatedAt = now
			result = item
		}

		if result == nil {
			result = &projectDomain.ConfigItem{
				ID:              uuid.Must(uuid.NewV7()),
				ProjectID:       projectID,
				Name:            name,
				ValueCiphertext: valueCiphertext,
				Position:        len(items),
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := u.configItems.Create(txCtx, result); err != nil {
				return err
			}
			items = append(items, result)
		}

		return u.projects.UpdateConfigChecksum(txCtx, projectID, computeChecksum(items))
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// DeleteItem removes one named config value and refreshes the checksum.
func (u *configUseCase) DeleteItem(
	ctx context.Context,
	projectID, userID uuid.UUID,
	name string,
) error {
	if _, err := u.access(ctx, projectID, userID); err != nil {
		return err
	}

	return u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := u.projects.GetByIDForUpdate(txCtx, projectID); err != nil {
			return err
		}

		items, err := u.configItems.ListByProject(txCtx, projectID)
		if err != nil {
			return err
		}

		remaining := items[:0]
		var deleted *projectDomain.ConfigItem
		for _, item := range items {
			if item.Name == name && deleted == nil {
				deleted = item
				continue
			}
			remaining = append(remaining, item)
		}
		if deleted == nil {
			return projectDomain.ErrConfigItemNotFound
		}

		if err := u.configItems.Delete(txCtx, deleted.ID); err != nil {
			return err
		}

		return u.projects.UpdateConfigChecksum(txCtx, projectID, computeChecksum(remaining))
	})
}

// ListFiles returns the project's encrypted file records.
func (u *configUseCase) ListFiles(
	ctx context.Context,
	projectID, userID uuid.UUID,
) ([]*projectDomain.ProjectFile, error) {
	if _, err := u.access(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return u.files.ListByProject(ctx, projectID)
}

// CreateFile records a new encrypted file key wrap.
func (u *configUseCase) CreateFile(
	ctx context.Context,
	userID uuid.UUID,
	input *CreateFileInput,
) (*projectDomain.ProjectFile, error) {
	if _, err := u.access(ctx, input.ProjectID, userID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	file := &projectDomain.ProjectFile{
		ID:               uuid.Must(uuid.NewV7()),
		ProjectID:        input.ProjectID,
		Name:             input.Name,
		SizeBytes:        input.SizeBytes,
		EncryptedFileKey: input.EncryptedFileKey,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := u.files.Create(ctx, file); err != nil {
		return nil, err
	}

	return file, nil
}

// Snapshot returns the full ciphertext state of a project for a
// project-scoped credential.
func (u *configUseCase) Snapshot(ctx context.Context, projectID uuid.UUID) (*ProjectSnapshot, error) {
	project, err := u.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	items, err := u.configItems.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	files, err := u.files.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return &ProjectSnapshot{Project: project, Items: items, Files: files}, nil
}

func computeChecksum(items []*projectDomain.ConfigItem) string {
	entries := make([]checksum.Item, 0, len(items))
	for _, item := range items {
		entries = append(entries, checksum.Item{
			Name:            item.Name,
			ValueCiphertext: item.ValueCiphertext,
		})
	}
	return checksum.Compute(entries)
}

// NewConfigUseCase creates a new ConfigUseCase instance.
func NewConfigUseCase(
	txManager database.TxManager,
	projects ProjectRepository,
	configItems ConfigItemRepository,
	files FileRepository,
	teams TeamRepository,
) ConfigUseCase {
	return &configUseCase{
		txManager:   txManager,
		projects:    projects,
		configItems: configItems,
		files:       files,
		teams:       teams,
	}
}
