package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/allisson/envie/internal/database"
	identityDomain "github.com/allisson/envie/internal/identity/domain"
)

type masterRotationUseCase struct {
	txManager   database.TxManager
	devices     DeviceRepository
	userKeys    UserKeyRepository
	memberships MembershipRepository
}

// State returns the live coverage state: the current user key, approved
// devices, and every membership wrap a rotation bundle must replace.
func (m *masterRotationUseCase) State(
	ctx context.Context,
	userID uuid.UUID,
) (*MasterRotationState, error) {
	userKey, err := m.userKeys.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	devices, err := m.devices.ListApprovedByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	teamMemberships, err := m.memberships.ListUserTeamMemberships(ctx, userID)
	if err != nil {
		return nil, err
	}

	orgMemberships, err := m.memberships.ListUserOrgMemberships(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &MasterRotationState{
		UserKey:         userKey,
		Devices:         devices,
		TeamMemberships: teamMemberships,
		OrgMemberships:  orgMemberships,
	}, nil
}

// Rotate applies a client-built master key rotation bundle in one
// transaction. The bundle must replace the wrapped master key on every
// approved device and re-wrap every team and organization key the user
// holds; anything missing or unknown rejects the whole bundle. Pending
// devices are intentionally not covered, they hold no key material yet.
func (m *masterRotationUseCase) Rotate(
	ctx context.Context,
	bundle *identityDomain.MasterRotationBundle,
) (*identityDomain.UserKey, error) {
	var userKey *identityDomain.UserKey

	err := m.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		userKey, err = m.userKeys.GetForUpdate(txCtx, bundle.UserID)
		if err != nil {
			return err
		}

		if userKey.MasterKeyVersion != bundle.ExpectedVersion {
			return identityDomain.ErrMasterKeyVersionConflict
		}

		if err := m.validateCoverage(txCtx, bundle); err != nil {
			return err
		}

		for _, wrap := range bundle.DeviceKeys {
			if err := m.devices.UpdateEncryptedMasterKey(txCtx, wrap.DeviceID, wrap.EncryptedMasterKey); err != nil {
				return err
			}
		}
		for _, wrap := range bundle.TeamKeys {
			if err := m.memberships.UpdateTeamMemberKey(txCtx, wrap.TeamID, bundle.UserID, wrap.EncryptedTeamKey); err != nil {
				return err
			}
		}
		for _, wrap := range bundle.OrgKeys {
			if err := m.memberships.UpdateOrgMemberKey(txCtx, wrap.OrganizationID, bundle.UserID, wrap.EncryptedOrgKey); err != nil {
				return err
			}
		}

		newVersion := userKey.MasterKeyVersion + 1
		if err := m.userKeys.Update(txCtx, bundle.UserID, bundle.NewPublicKey, newVersion); err != nil {
			return err
		}

		userKey.PublicKey = bundle.NewPublicKey
		userKey.MasterKeyVersion = newVersion
		return nil
	})
	if err != nil {
		return nil, err
	}

	return userKey, nil
}

// validateCoverage checks the bundle against live state: exactly one wrap per
// approved device, per team membership, and per organization membership that
// holds a wrapped organization key.
func (m *masterRotationUseCase) validateCoverage(
	ctx context.Context,
	bundle *identityDomain.MasterRotationBundle,
) error {
	devices, err := m.devices.ListApprovedByUser(ctx, bundle.UserID)
	if err != nil {
		return err
	}
	deviceIDs := make(map[uuid.UUID]struct{}, len(devices))
	for _, device := range devices {
		deviceIDs[device.ID] = struct{}{}
	}
	if len(bundle.DeviceKeys) != len(deviceIDs) {
		return identityDomain.ErrRotationBundleIncomplete
	}
	for _, wrap := range bundle.DeviceKeys {
		if _, ok := deviceIDs[wrap.DeviceID]; !ok {
			return identityDomain.ErrRotationBundleIncomplete
		}
		delete(deviceIDs, wrap.DeviceID)
	}

	teamMemberships, err := m.memberships.ListUserTeamMemberships(ctx, bundle.UserID)
	if err != nil {
		return err
	}
	teamIDs := make(map[uuid.UUID]struct{}, len(teamMemberships))
	for _, membership := range teamMemberships {
		teamIDs[membership.TeamID] = struct{}{}
	}
	if len(bundle.TeamKeys) != len(teamIDs) {
		return identityDomain.ErrRotationBundleIncomplete
	}
	for _, wrap := range bundle.TeamKeys {
		if _, ok := teamIDs[wrap.TeamID]; !ok {
			return identityDomain.ErrRotationBundleIncomplete
		}
		delete(teamIDs, wrap.TeamID)
	}

	orgMemberships, err := m.memberships.ListUserOrgMemberships(ctx, bundle.UserID)
	if err != nil {
		return err
	}
	orgIDs := make(map[uuid.UUID]struct{})
	for _, membership := range orgMemberships {
		if membership.EncryptedOrgKey != nil {
			orgIDs[membership.OrganizationID] = struct{}{}
		}
	}
	if len(bundle.OrgKeys) != len(orgIDs) {
		return identityDomain.ErrRotationBundleIncomplete
	}
	for _, wrap := range bundle.OrgKeys {
		if _, ok := orgIDs[wrap.OrganizationID]; !ok {
			return identityDomain.ErrRotationBundleIncomplete
		}
		delete(orgIDs, wrap.OrganizationID)
	}

	return nil
}

// NewMasterRotationUseCase creates a new MasterRotationUseCase instance.
func NewMasterRotationUseCase(
	txManager database.TxManager,
	devices DeviceRepository,
	userKeys UserKeyRepository,
	memberships MembershipRepository,
) MasterRotationUseCase {
	return &masterRotationUseCase{
		txManager:   txManager,
		devices:     devices,
		userKeys:    userKeys,
		memberships: memberships,
	}
}
