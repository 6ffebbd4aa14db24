// Package usecase defines the interfaces and implementations for project key
// rotation. The use case orchestrates the quorum protocol: snapshot
// validation, vote collection, drift detection and the atomic commit.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	keychainDomain "github.com/allisson/envie/internal/keychain/domain"
	projectDomain "github.com/allisson/envie/internal/project/domain"
	rotationDomain "github.com/allisson/envie/internal/rotation/domain"
)

// RotationRepository defines rotation persistence operations.
type RotationRepository interface {
	Create(ctx context.Context, rotation *rotationDomain.PendingKeyRotation) error
	GetByID(ctx context.Context, rotationID uuid.UUID) (*rotationDomain.PendingKeyRotation, error)
	GetByIDForUpdate(ctx context.Context, rotationID uuid.UUID) (*rotationDomain.PendingKeyRotation, error)
	GetPendingByProject(ctx context.Context, projectID uuid.UUID) (*rotationDomain.PendingKeyRotation, error)
	CreateApproval(ctx context.Context, approval *rotationDomain.KeyRotationApproval) error
	UpdateStatusIf(ctx context.Context, rotationID uuid.UUID, from, to rotationDomain.Status) error
	ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]*rotationDomain.PendingKeyRotation, error)
	ExpireSweep(ctx context.Context, now time.Time) (int64, error)
}

// ProjectRepository defines the project persistence operations the rotation
// protocol needs.
type ProjectRepository interface {
	GetByID(ctx context.Context, projectID uuid.UUID) (*projectDomain.Project, error)
	GetByIDForUpdate(ctx context.Context, projectID uuid.UUID) (*projectDomain.Project, error)
	UpdateKeyState(ctx context.Context, projectID uuid.UUID, keyVersion uint, configChecksum string) error
}

// ConfigItemRepository defines config item persistence operations.
type ConfigItemRepository interface {
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*projectDomain.ConfigItem, error)
	UpdateValueCiphertext(ctx context.Context, itemID uuid.UUID, valueCiphertext string) error
}

// FileRepository defines project file persistence operations.
type FileRepository interface {
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*projectDomain.ProjectFile, error)
	UpdateFileKey(ctx context.Context, fileID uuid.UUID, encryptedFileKey string) error
}

// TeamRepository defines the team access operations the rotation protocol
// needs.
type TeamRepository interface {
	GetProjectAccess(ctx context.Context, projectID, userID uuid.UUID) (*keychainDomain.ProjectAccess, error)
	ListTeamProjects(ctx context.Context, projectID uuid.UUID) ([]*projectDomain.TeamProject, error)
	UpdateTeamProjectKey(ctx context.Context, teamID, projectID uuid.UUID, encryptedProjectKey string) error
	CountProjectAdmins(ctx context.Context, projectID uuid.UUID) (int, error)
	IsProjectAdmin(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
}

// ProjectTokenRepository revokes project tokens on commit. Tokens carry the
// project key wrapped to their own keypair, so a committed rotation makes
// every existing token worthless and they are deleted outright.
type ProjectTokenRepository interface {
	DeleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error)
}

// RotationUseCase defines the project key rotation business logic.
type RotationUseCase interface {
	// Initiate validates a complete rotation proposal and persists it as
	// pending. When the quorum is zero it commits in the same transaction.
	Initiate(ctx context.Context, input *rotationDomain.InitiateInput) (*rotationDomain.PendingKeyRotation, error)

	// Approve casts a positive vote. The quorum-reaching vote commits the
	// snapshot atomically. verifiedDecryption records whether the voter
	// attests to having decrypted the proposed snapshot.
	Approve(ctx context.Context, rotationID, userID uuid.UUID, comment string, verifiedDecryption bool) (*rotationDomain.PendingKeyRotation, error)

	// Reject casts a veto; a single rejection finalizes the rotation.
	Reject(ctx context.Context, rotationID, userID uuid.UUID, comment string, verifiedDecryption bool) (*rotationDomain.PendingKeyRotation, error)

	// Cancel withdraws a pending proposal. Initiator only, before any vote.
	Cancel(ctx context.Context, rotationID, userID uuid.UUID) (*rotationDomain.PendingKeyRotation, error)

	// GetPending returns the project's pending rotation, expiring it lazily
	// when overdue.
	GetPending(ctx context.Context, projectID uuid.UUID) (*rotationDomain.PendingKeyRotation, error)

	// ListPendingForUser returns pending rotations awaiting the user's vote.
	ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]*rotationDomain.PendingKeyRotation, error)

	// SweepExpired finalizes every overdue pending rotation.
	SweepExpired(ctx context.Context) (int64, error)
}
