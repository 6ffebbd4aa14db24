// Package usecase implements the project-side business logic the key
// hierarchy depends on: access-checked reads of encrypted config, checksum
// maintenance on every write, and the ciphertext snapshot the CLI pulls.
package usecase

import (
	"context"

	"github.com/google/uuid"

	keychainDomain "github.com/allisson/envie/internal/keychain/domain"
	projectDomain "github.com/allisson/envie/internal/project/domain"
)

// ProjectRepository defines the project persistence operations config
// management needs.
type ProjectRepository interface {
	GetByID(ctx context.Context, projectID uuid.UUID) (*projectDomain.Project, error)
	GetByIDForUpdate(ctx context.Context, projectID uuid.UUID) (*projectDomain.Project, error)
	UpdateConfigChecksum(ctx context.Context, projectID uuid.UUID, configChecksum string) error
}

// ConfigItemRepository defines config item persistence operations.
type ConfigItemRepository interface {
	Create(ctx context.Context, item *projectDomain.ConfigItem) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*projectDomain.ConfigItem, error)
	UpdateValueCiphertext(ctx context.Context, itemID uuid.UUID, valueCiphertext string) error
	Delete(ctx context.Context, itemID uuid.UUID) error
}

// FileRepository defines project file persistence operations.
type FileRepository interface {
	Create(ctx context.Context, file *projectDomain.ProjectFile) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*projectDomain.ProjectFile, error)
}

// TeamRepository defines the access-path lookup config management needs.
type TeamRepository interface {
	GetProjectAccess(ctx context.Context, projectID, userID uuid.UUID) (*keychainDomain.ProjectAccess, error)
}

// ProjectSnapshot is everything a project-scoped client needs to decrypt
// locally: project metadata, encrypted config items in persisted order, and
// file key wraps. Every value is ciphertext.
type ProjectSnapshot struct {
	Project *projectDomain.Project
	Items   []*projectDomain.ConfigItem
	Files   []*projectDomain.ProjectFile
}

// CreateFileInput carries a new encrypted file record. The content itself
// lives in external blob storage; only the wrapped file key is stored here.
type CreateFileInput struct {
	ProjectID        uuid.UUID
	Name             string
	SizeBytes        int64
	EncryptedFileKey string
}

// ConfigUseCase defines the encrypted config business logic.
type ConfigUseCase interface {
	// GetProject returns project metadata after verifying the user has some
	// access path to the project key.
	GetProject(ctx context.Context, projectID, userID uuid.UUID) (*projectDomain.Project, error)

	// GetAccess returns the wrapped keys that let the user reach the project
	// key, or ErrNotEntitled when no path exists.
	GetAccess(ctx context.Context, projectID, userID uuid.UUID) (*keychainDomain.ProjectAccess, error)

	// ListItems returns the project's config items in persisted order.
	ListItems(ctx context.Context, projectID, userID uuid.UUID) ([]*projectDomain.ConfigItem, error)

	// SetItem creates or replaces one named config value and refreshes the
	// project checksum in the same transaction.
	SetItem(ctx context.Context, projectID, userID uuid.UUID, name, valueCiphertext string) (*projectDomain.ConfigItem, error)

	// DeleteItem removes one named config value and refreshes the checksum.
	DeleteItem(ctx context.Context, projectID, userID uuid.UUID, name string) error

	// ListFiles returns the project's encrypted file records.
	ListFiles(ctx context.Context, projectID, userID uuid.UUID) ([]*projectDomain.ProjectFile, error)

	// CreateFile records a new encrypted file key wrap.
	CreateFile(ctx context.Context, userID uuid.UUID, input *CreateFileInput) (*projectDomain.ProjectFile, error)

	// Snapshot returns the full ciphertext state of a project. Callers are
	// project-scoped credentials; no per-user access check applies.
	Snapshot(ctx context.Context, projectID uuid.UUID) (*ProjectSnapshot, error)
}
