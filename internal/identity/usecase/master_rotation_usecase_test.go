package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	identityDomain "github.com/allisson/envie/internal/identity/domain"
	"github.com/allisson/envie/internal/identity/usecase/mocks"
	projectDomain "github.com/allisson/envie/internal/project/domain"
)

type rotationFixture struct {
	useCase     MasterRotationUseCase
	devices     *mocks.MockDeviceRepository
	userKeys    *mocks.MockUserKeyRepository
	memberships *mocks.MockMembershipRepository

	userID   uuid.UUID
	deviceID uuid.UUID
	teamID   uuid.UUID
	orgID    uuid.UUID
}

func newRotationFixture(t *testing.T) *rotationFixture {
	t.Helper()

	f := &rotationFixture{
		devices:     &mocks.MockDeviceRepository{},
		userKeys:    &mocks.MockUserKeyRepository{},
		memberships: &mocks.MockMembershipRepository{},
		userID:      uuid.Must(uuid.NewV7()),
		deviceID:    uuid.Must(uuid.NewV7()),
		teamID:      uuid.Must(uuid.NewV7()),
		orgID:       uuid.Must(uuid.NewV7()),
	}
	f.useCase = NewMasterRotationUseCase(
		mocks.PassthroughTxManager{},
		f.devices,
		f.userKeys,
		f.memberships,
	)
	return f
}

func (f *rotationFixture) bundle() *identityDomain.MasterRotationBundle {
	return &identityDomain.MasterRotationBundle{
		UserID:          f.userID,
		NewPublicKey:    "bmV3LW1hc3Rlci1wdWI=",
		ExpectedVersion: 1,
		DeviceKeys: []identityDomain.DeviceKeyWrap{
			{DeviceID: f.deviceID, EncryptedMasterKey: "bmV3LWRldmljZS13cmFw"},
		},
		TeamKeys: []identityDomain.TeamKeyWrap{
			{TeamID: f.teamID, EncryptedTeamKey: "bmV3LXRlYW0td3JhcA=="},
		},
		OrgKeys: []identityDomain.OrgKeyWrap{
			{OrganizationID: f.orgID, EncryptedOrgKey: "bmV3LW9yZy13cmFw"},
		},
	}
}

func (f *rotationFixture) expectLiveState() {
	wrapped := "b2xkLWRldmljZS13cmFw"
	orgWrap := "b2xkLW9yZy13cmFw"

	f.userKeys.On("GetForUpdate", mock.Anything, f.userID).
		Return(&identityDomain.UserKey{
			UserID:           f.userID,
			PublicKey:        "b2xkLW1hc3Rlci1wdWI=",
			MasterKeyVersion: 1,
		}, nil).Once()
	f.devices.On("ListApprovedByUser", mock.Anything, f.userID).
		Return([]*identityDomain.Device{
			{ID: f.deviceID, UserID: f.userID, EncryptedMasterKey: &wrapped},
		}, nil).Once()
	f.memberships.On("ListUserTeamMemberships", mock.Anything, f.userID).
		Return([]*projectDomain.TeamMember{
			{TeamID: f.teamID, UserID: f.userID, Role: projectDomain.RoleAdmin, EncryptedTeamKey: "b2xkLXRlYW0td3JhcA=="},
		}, nil).Once()
	f.memberships.On("ListUserOrgMemberships", mock.Anything, f.userID).
		Return([]*projectDomain.OrganizationMember{
			{OrganizationID: f.orgID, UserID: f.userID, Role: projectDomain.RoleAdmin, EncryptedOrgKey: &orgWrap},
		}, nil).Once()
}

func TestMasterRotationUseCase_State(t *testing.T) {
	t.Run("Success_GathersCoverage", func(t *testing.T) {
		f := newRotationFixture(t)
		wrapped := "b2xkLWRldmljZS13cmFw"

		f.userKeys.On("Get", mock.Anything, f.userID).
			Return(&identityDomain.UserKey{UserID: f.userID, MasterKeyVersion: 1}, nil).Once()
		f.devices.On("ListApprovedByUser", mock.Anything, f.userID).
			Return([]*identityDomain.Device{
				{ID: f.deviceID, UserID: f.userID, EncryptedMasterKey: &wrapped},
			}, nil).Once()
		f.memberships.On("ListUserTeamMemberships", mock.Anything, f.userID).
			Return([]*projectDomain.TeamMember{
				{TeamID: f.teamID, UserID: f.userID, EncryptedTeamKey: "b2xkLXRlYW0td3JhcA=="},
			}, nil).Once()
		f.memberships.On("ListUserOrgMemberships", mock.Anything, f.userID).
			Return([]*projectDomain.OrganizationMember{}, nil).Once()

		state, err := f.useCase.State(context.Background(), f.userID)
		require.NoError(t, err)
		assert.Equal(t, 1, state.UserKey.MasterKeyVersion)
		assert.Len(t, state.Devices, 1)
		assert.Len(t, state.TeamMemberships, 1)
		assert.Empty(t, state.OrgMemberships)
	})

	t.Run("Error_NoUserKey", func(t *testing.T) {
		f := newRotationFixture(t)

		f.userKeys.On("Get", mock.Anything, f.userID).
			Return(nil, identityDomain.ErrUserKeyNotFound).Once()

		state, err := f.useCase.State(context.Background(), f.userID)
		assert.Nil(t, state)
		assert.ErrorIs(t, err, identityDomain.ErrUserKeyNotFound)
	})
}

func TestMasterRotationUseCase_Rotate(t *testing.T) {
	t.Run("Success_FullCoverage", func(t *testing.T) {
		f := newRotationFixture(t)
		f.expectLiveState()

		f.devices.On("UpdateEncryptedMasterKey", mock.Anything, f.deviceID, "bmV3LWRldmljZS13cmFw").
			Return(nil).Once()
		f.memberships.On("UpdateTeamMemberKey", mock.Anything, f.teamID, f.userID, "bmV3LXRlYW0td3JhcA==").
			Return(nil).Once()
		f.memberships.On("UpdateOrgMemberKey", mock.Anything, f.orgID, f.userID, "bmV3LW9yZy13cmFw").
			Return(nil).Once()
		f.userKeys.On("Update", mock.Anything, f.userID, "bmV3LW1hc3Rlci1wdWI=", 2).
			Return(nil).Once()

		userKey, err := f.useCase.Rotate(context.Background(), f.bundle())
		require.NoError(t, err)
		assert.Equal(t, "bmV3LW1hc3Rlci1wdWI=", userKey.PublicKey)
		assert.Equal(t, 2, userKey.MasterKeyVersion)

		f.devices.AssertExpectations(t)
		f.memberships.AssertExpectations(t)
		f.userKeys.AssertExpectations(t)
	})

	t.Run("Error_VersionConflict", func(t *testing.T) {
		f := newRotationFixture(t)

		f.userKeys.On("GetForUpdate", mock.Anything, f.userID).
			Return(&identityDomain.UserKey{UserID: f.userID, MasterKeyVersion: 3}, nil).Once()

		userKey, err := f.useCase.Rotate(context.Background(), f.bundle())
		assert.Nil(t, userKey)
		assert.ErrorIs(t, err, identityDomain.ErrMasterKeyVersionConflict)
		f.devices.AssertNotCalled(t, "UpdateEncryptedMasterKey")
	})

	t.Run("Error_MissingDeviceWrap", func(t *testing.T) {
		f := newRotationFixture(t)
		f.expectLiveState()

		bundle := f.bundle()
		bundle.DeviceKeys = nil

		userKey, err := f.useCase.Rotate(context.Background(), bundle)
		assert.Nil(t, userKey)
		assert.ErrorIs(t, err, identityDomain.ErrRotationBundleIncomplete)
		f.userKeys.AssertNotCalled(t, "Update")
	})

	t.Run("Error_UnknownTeamWrap", func(t *testing.T) {
		f := newRotationFixture(t)
		f.expectLiveState()

		bundle := f.bundle()
		bundle.TeamKeys[0].TeamID = uuid.Must(uuid.NewV7())

		userKey, err := f.useCase.Rotate(context.Background(), bundle)
		assert.Nil(t, userKey)
		assert.ErrorIs(t, err, identityDomain.ErrRotationBundleIncomplete)
		f.memberships.AssertNotCalled(t, "UpdateTeamMemberKey")
	})

	t.Run("Success_PlainOrgMemberNeedsNoWrap", func(t *testing.T) {
		f := newRotationFixture(t)
		wrapped := "b2xkLWRldmljZS13cmFw"

		f.userKeys.On("GetForUpdate", mock.Anything, f.userID).
			Return(&identityDomain.UserKey{
				UserID:           f.userID,
				PublicKey:        "b2xkLW1hc3Rlci1wdWI=",
				MasterKeyVersion: 1,
			}, nil).Once()
		f.devices.On("ListApprovedByUser", mock.Anything, f.userID).
			Return([]*identityDomain.Device{
				{ID: f.deviceID, UserID: f.userID, EncryptedMasterKey: &wrapped},
			}, nil).Once()
		f.memberships.On("ListUserTeamMemberships", mock.Anything, f.userID).
			Return([]*projectDomain.TeamMember{}, nil).Once()
		// Plain member: no wrapped org key on the membership row.
		f.memberships.On("ListUserOrgMemberships", mock.Anything, f.userID).
			Return([]*projectDomain.OrganizationMember{
				{OrganizationID: f.orgID, UserID: f.userID, Role: projectDomain.RoleMember},
			}, nil).Once()

		f.devices.On("UpdateEncryptedMasterKey", mock.Anything, f.deviceID, "bmV3LWRldmljZS13cmFw").
			Return(nil).Once()
		f.userKeys.On("Update", mock.Anything, f.userID, "bmV3LW1hc3Rlci1wdWI=", 2).
			Return(nil).Once()

		bundle := f.bundle()
		bundle.TeamKeys = nil
		bundle.OrgKeys = nil

		userKey, err := f.useCase.Rotate(context.Background(), bundle)
		require.NoError(t, err)
		assert.Equal(t, 2, userKey.MasterKeyVersion)
		f.memberships.AssertNotCalled(t, "UpdateOrgMemberKey")
	})
}
