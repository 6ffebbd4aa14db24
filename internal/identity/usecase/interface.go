// Package usecase implements the identity registry business logic: device
// registration and approval, linking codes, project token lifecycle and
// client-driven master key rotation.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	identityDomain "github.com/allisson/envie/internal/identity/domain"
	projectDomain "github.com/allisson/envie/internal/project/domain"
)

// DeviceRepository defines device persistence operations.
type DeviceRepository interface {
	Create(ctx context.Context, device *identityDomain.Device) error
	GetByID(ctx context.Context, deviceID uuid.UUID) (*identityDomain.Device, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*identityDomain.Device, error)
	ListApprovedByUser(ctx context.Context, userID uuid.UUID) ([]*identityDomain.Device, error)
	Approve(ctx context.Context, deviceID uuid.UUID, encryptedMasterKey string) error
	UpdateEncryptedMasterKey(ctx context.Context, deviceID uuid.UUID, encryptedMasterKey string) error
	TouchLastActive(ctx context.Context, deviceID uuid.UUID) error
	Delete(ctx context.Context, deviceID uuid.UUID) error
}

// UserKeyRepository defines master public key persistence operations.
type UserKeyRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*identityDomain.UserKey, error)
	GetForUpdate(ctx context.Context, userID uuid.UUID) (*identityDomain.UserKey, error)
	Create(ctx context.Context, userKey *identityDomain.UserKey) error
	Update(ctx context.Context, userID uuid.UUID, publicKey string, masterKeyVersion int) error
}

// LinkingCodeRepository defines linking code persistence operations.
type LinkingCodeRepository interface {
	Create(ctx context.Context, code *identityDomain.LinkingCode) error
	ListRedeemable(ctx context.Context, now time.Time) ([]*identityDomain.LinkingCode, error)
	MarkUsed(ctx context.Context, codeID uuid.UUID, usedAt time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ProjectTokenRepository defines project token persistence operations.
type ProjectTokenRepository interface {
	Create(ctx context.Context, token *identityDomain.ProjectToken) error
	GetByIdentityHash(ctx context.Context, identityIDHash string) (*identityDomain.ProjectToken, error)
	ListByProject(ctx context.Context, projectID uuid.UUID, offset, limit int) ([]*identityDomain.ProjectToken, error)
	TouchLastUsed(ctx context.Context, tokenID uuid.UUID) error
	Delete(ctx context.Context, tokenID uuid.UUID) error
	DeleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error)
}

// MembershipRepository defines the team and organization membership
// operations master key rotation needs for coverage and commit.
type MembershipRepository interface {
	ListUserTeamMemberships(ctx context.Context, userID uuid.UUID) ([]*projectDomain.TeamMember, error)
	UpdateTeamMemberKey(ctx context.Context, teamID, userID uuid.UUID, encryptedTeamKey string) error
	ListUserOrgMemberships(ctx context.Context, userID uuid.UUID) ([]*projectDomain.OrganizationMember, error)
	UpdateOrgMemberKey(ctx context.Context, orgID, userID uuid.UUID, encryptedOrgKey string) error
}

// RegisterDeviceInput carries a new device registration. The first device of
// a user bootstraps the key chain and must carry the master public key plus
// the master private key wrapped to itself; later devices register pending.
type RegisterDeviceInput struct {
	UserID    uuid.UUID
	Name      string
	PublicKey string

	// MasterPublicKey and EncryptedMasterKey are set only on the first
	// device. The client generated the master keypair locally and wrapped
	// the private key to the device's own public key.
	MasterPublicKey    string
	EncryptedMasterKey string
}

// DeviceUseCase defines the device registry business logic.
type DeviceUseCase interface {
	// Register creates a device. With no user key on record it bootstraps
	// the user's key chain in one transaction; otherwise the device is
	// pending until approved.
	Register(ctx context.Context, input *RegisterDeviceInput) (*identityDomain.Device, error)

	// CreateLinkingCode issues a single-use code binding a pending device
	// public key to the user. The plain code is returned once.
	CreateLinkingCode(ctx context.Context, userID uuid.UUID, devicePublicKey string) (string, *identityDomain.LinkingCode, error)

	// RedeemLinkingCode consumes a code and returns the bound registration,
	// so an approved device can wrap the master key for the new one.
	RedeemLinkingCode(ctx context.Context, plainCode string) (*identityDomain.LinkingCode, error)

	// Approve stores the wrapped master key on a pending device.
	Approve(ctx context.Context, userID, deviceID uuid.UUID, encryptedMasterKey string) (*identityDomain.Device, error)

	// List returns the user's devices, pending included.
	List(ctx context.Context, userID uuid.UUID) ([]*identityDomain.Device, error)

	// Touch loads a device and records its activity.
	Touch(ctx context.Context, deviceID uuid.UUID) (*identityDomain.Device, error)

	// Revoke removes a device.
	Revoke(ctx context.Context, userID, deviceID uuid.UUID) error

	// GetUserKey returns the user's master public key and version.
	GetUserKey(ctx context.Context, userID uuid.UUID) (*identityDomain.UserKey, error)
}

// CreateTokenInput carries a client-built project token record. The client
// generated the token secret locally, derived its identity, and wrapped the
// project key to the derived public key; the server never sees the secret.
type CreateTokenInput struct {
	ProjectID           uuid.UUID
	Name                string
	TokenPrefix         string
	IdentityIDHash      string
	EncryptedProjectKey string
	ExpiresAt           *time.Time
	CreatedBy           uuid.UUID
}

// TokenUseCase defines the project token business logic.
type TokenUseCase interface {
	// Create persists a client-built token record.
	Create(ctx context.Context, input *CreateTokenInput) (*identityDomain.ProjectToken, error)

	// Authenticate resolves a plaintext identity id to its token record,
	// rejecting unknown and expired tokens identically where possible.
	Authenticate(ctx context.Context, identityID string) (*identityDomain.ProjectToken, error)

	// ListByProject returns a page of token metadata for a project.
	ListByProject(ctx context.Context, projectID uuid.UUID, offset, limit int) ([]*identityDomain.ProjectToken, error)

	// Revoke deletes a single token.
	Revoke(ctx context.Context, tokenID uuid.UUID) error
}

// MasterRotationState is everything a client needs to build a complete
// rotation bundle: the current user key (whose version pins the bundle),
// every approved device, and every membership wrap the bundle must cover.
type MasterRotationState struct {
	UserKey         *identityDomain.UserKey
	Devices         []*identityDomain.Device
	TeamMemberships []*projectDomain.TeamMember
	OrgMemberships  []*projectDomain.OrganizationMember
}

// MasterRotationUseCase applies client-built master key rotation bundles.
type MasterRotationUseCase interface {
	// State returns the live coverage state a rotation bundle is built
	// against.
	State(ctx context.Context, userID uuid.UUID) (*MasterRotationState, error)

	// Rotate validates bundle coverage against live state and applies every
	// wrap plus the version bump in one transaction.
	Rotate(ctx context.Context, bundle *identityDomain.MasterRotationBundle) (*identityDomain.UserKey, error)
}
