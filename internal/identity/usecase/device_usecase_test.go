package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/envie/internal/errors"
	identityDomain "github.com/allisson/envie/internal/identity/domain"
	identityService "github.com/allisson/envie/internal/identity/service"
	"github.com/allisson/envie/internal/identity/usecase/mocks"
)

type deviceFixture struct {
	useCase      DeviceUseCase
	devices      *mocks.MockDeviceRepository
	userKeys     *mocks.MockUserKeyRepository
	linkingCodes *mocks.MockLinkingCodeRepository
	codeService  identityService.LinkingCodeService
}

func newDeviceFixture(t *testing.T) *deviceFixture {
	t.Helper()

	codeService, err := identityService.NewLinkingCodeService()
	require.NoError(t, err)

	f := &deviceFixture{
		devices:      &mocks.MockDeviceRepository{},
		userKeys:     &mocks.MockUserKeyRepository{},
		linkingCodes: &mocks.MockLinkingCodeRepository{},
		codeService:  codeService,
	}
	f.useCase = NewDeviceUseCase(
		mocks.PassthroughTxManager{},
		f.devices,
		f.userKeys,
		f.linkingCodes,
		codeService,
	)
	return f
}

func TestDeviceUseCase_Register(t *testing.T) {
	t.Run("Success_BootstrapsFirstDevice", func(t *testing.T) {
		f := newDeviceFixture(t)
		userID := uuid.Must(uuid.NewV7())

		f.userKeys.On("Get", mock.Anything, userID).
			Return(nil, identityDomain.ErrUserKeyNotFound).Once()
		f.userKeys.On("Create", mock.Anything, mock.MatchedBy(func(key *identityDomain.UserKey) bool {
			return key.UserID == userID &&
				key.PublicKey == "bWFzdGVyLXB1Yg==" &&
				key.MasterKeyVersion == 1
		})).Return(nil).Once()
		f.devices.On("Create", mock.Anything, mock.MatchedBy(func(device *identityDomain.Device) bool {
			return device.UserID == userID && device.IsApproved()
		})).Return(nil).Once()

		device, err := f.useCase.Register(context.Background(), &RegisterDeviceInput{
			UserID:             userID,
			Name:               "work laptop",
			PublicKey:          "ZGV2aWNlLXB1Yg==",
			MasterPublicKey:    "bWFzdGVyLXB1Yg==",
			EncryptedMasterKey: "d3JhcHBlZA==",
		})
		require.NoError(t, err)
		assert.True(t, device.IsApproved())
		assert.Equal(t, "d3JhcHBlZA==", *device.EncryptedMasterKey)

		f.userKeys.AssertExpectations(t)
		f.devices.AssertExpectations(t)
	})

	t.Run("Success_LaterDeviceIsPending", func(t *testing.T) {
		f := newDeviceFixture(t)
		userID := uuid.Must(uuid.NewV7())

		f.userKeys.On("Get", mock.Anything, userID).
			Return(&identityDomain.UserKey{UserID: userID, MasterKeyVersion: 1}, nil).Once()
		f.devices.On("Create", mock.Anything, mock.MatchedBy(func(device *identityDomain.Device) bool {
			return device.UserID == userID && !device.IsApproved()
		})).Return(nil).Once()

		device, err := f.useCase.Register(context.Background(), &RegisterDeviceInput{
			UserID:    userID,
			Name:      "phone",
			PublicKey: "ZGV2aWNlLXB1Yg==",
		})
		require.NoError(t, err)
		assert.False(t, device.IsApproved())

		f.devices.AssertExpectations(t)
	})

	t.Run("Error_FirstDeviceWithoutBootstrap", func(t *testing.T) {
		f := newDeviceFixture(t)
		userID := uuid.Must(uuid.NewV7())

		f.userKeys.On("Get", mock.Anything, userID).
			Return(nil, identityDomain.ErrUserKeyNotFound).Once()

		device, err := f.useCase.Register(context.Background(), &RegisterDeviceInput{
			UserID:    userID,
			Name:      "phone",
			PublicKey: "ZGV2aWNlLXB1Yg==",
		})
		assert.Nil(t, device)
		assert.ErrorIs(t, err, identityDomain.ErrUserKeyNotFound)
		f.devices.AssertNotCalled(t, "Create")
	})

	t.Run("Error_DoubleBootstrap", func(t *testing.T) {
		f := newDeviceFixture(t)
		userID := uuid.Must(uuid.NewV7())

		f.userKeys.On("Get", mock.Anything, userID).
			Return(&identityDomain.UserKey{UserID: userID, MasterKeyVersion: 1}, nil).Once()

		device, err := f.useCase.Register(context.Background(), &RegisterDeviceInput{
			UserID:             userID,
			Name:               "work laptop",
			PublicKey:          "ZGV2aWNlLXB1Yg==",
			MasterPublicKey:    "bWFzdGVyLXB1Yg==",
			EncryptedMasterKey: "d3JhcHBlZA==",
		})
		assert.Nil(t, device)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		f.userKeys.AssertNotCalled(t, "Create")
	})
}

func TestDeviceUseCase_LinkingCodes(t *testing.T) {
	t.Run("Success_CreateThenRedeem", func(t *testing.T) {
		f := newDeviceFixture(t)
		userID := uuid.Must(uuid.NewV7())

		var stored *identityDomain.LinkingCode
		f.linkingCodes.On("Create", mock.Anything, mock.AnythingOfType("*domain.LinkingCode")).
			Run(func(args mock.Arguments) {
				stored = args.Get(1).(*identityDomain.LinkingCode)
			}).
			Return(nil).Once()

		plainCode, code, err := f.useCase.CreateLinkingCode(context.Background(), userID, "bmV3LWRldmljZS1wdWI=")
		require.NoError(t, err)
		assert.NotEmpty(t, plainCode)
		assert.NotEqual(t, plainCode, code.CodeHash)
		assert.Equal(t, userID, code.UserID)
		assert.WithinDuration(t, time.Now().UTC().Add(identityDomain.LinkingCodeTTL), code.ExpiresAt, 5*time.Second)

		f.linkingCodes.On("ListRedeemable", mock.Anything, mock.Anything).
			Return([]*identityDomain.LinkingCode{stored}, nil).Once()
		f.linkingCodes.On("MarkUsed", mock.Anything, stored.ID, mock.Anything).
			Return(nil).Once()

		redeemed, err := f.useCase.RedeemLinkingCode(context.Background(), plainCode)
		require.NoError(t, err)
		assert.Equal(t, stored.ID, redeemed.ID)
		assert.Equal(t, "bmV3LWRldmljZS1wdWI=", redeemed.DevicePublicKey)
		assert.NotNil(t, redeemed.UsedAt)

		f.linkingCodes.AssertExpectations(t)
	})

	t.Run("Error_UnknownCode", func(t *testing.T) {
		f := newDeviceFixture(t)

		f.linkingCodes.On("ListRedeemable", mock.Anything, mock.Anything).
			Return([]*identityDomain.LinkingCode{}, nil).Once()

		redeemed, err := f.useCase.RedeemLinkingCode(context.Background(), "no-such-code")
		assert.Nil(t, redeemed)
		assert.ErrorIs(t, err, identityDomain.ErrLinkingCodeInvalid)
	})

	t.Run("Error_WrongCodeAgainstCandidates", func(t *testing.T) {
		f := newDeviceFixture(t)
		userID := uuid.Must(uuid.NewV7())

		var stored *identityDomain.LinkingCode
		f.linkingCodes.On("Create", mock.Anything, mock.AnythingOfType("*domain.LinkingCode")).
			Run(func(args mock.Arguments) {
				stored = args.Get(1).(*identityDomain.LinkingCode)
			}).
			Return(nil).Once()

		_, _, err := f.useCase.CreateLinkingCode(context.Background(), userID, "bmV3LWRldmljZS1wdWI=")
		require.NoError(t, err)

		f.linkingCodes.On("ListRedeemable", mock.Anything, mock.Anything).
			Return([]*identityDomain.LinkingCode{stored}, nil).Once()

		redeemed, err := f.useCase.RedeemLinkingCode(context.Background(), "wrong-code")
		assert.Nil(t, redeemed)
		assert.ErrorIs(t, err, identityDomain.ErrLinkingCodeInvalid)
		f.linkingCodes.AssertNotCalled(t, "MarkUsed")
	})
}

func TestDeviceUseCase_Approve(t *testing.T) {
	t.Run("Success_PendingDevice", func(t *testing.T) {
		f := newDeviceFixture(t)
		userID := uuid.Must(uuid.NewV7())
		deviceID := uuid.Must(uuid.NewV7())

		f.devices.On("GetByID", mock.Anything, deviceID).
			Return(&identityDomain.Device{ID: deviceID, UserID: userID}, nil).Once()
		f.devices.On("Approve", mock.Anything, deviceID, "d3JhcHBlZA==").
			Return(nil).Once()

		device, err := f.useCase.Approve(context.Background(), userID, deviceID, "d3JhcHBlZA==")
		require.NoError(t, err)
		assert.True(t, device.IsApproved())

		f.devices.AssertExpectations(t)
	})

	t.Run("Error_ForeignDevice", func(t *testing.T) {
		f := newDeviceFixture(t)
		deviceID := uuid.Must(uuid.NewV7())

		f.devices.On("GetByID", mock.Anything, deviceID).
			Return(&identityDomain.Device{ID: deviceID, UserID: uuid.Must(uuid.NewV7())}, nil).Once()

		device, err := f.useCase.Approve(context.Background(), uuid.Must(uuid.NewV7()), deviceID, "d3JhcHBlZA==")
		assert.Nil(t, device)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		f.devices.AssertNotCalled(t, "Approve")
	})

	t.Run("Error_AlreadyApproved", func(t *testing.T) {
		f := newDeviceFixture(t)
		userID := uuid.Must(uuid.NewV7())
		deviceID := uuid.Must(uuid.NewV7())
		wrapped := "b2xkLXdyYXA="

		f.devices.On("GetByID", mock.Anything, deviceID).
			Return(&identityDomain.Device{ID: deviceID, UserID: userID, EncryptedMasterKey: &wrapped}, nil).Once()

		device, err := f.useCase.Approve(context.Background(), userID, deviceID, "d3JhcHBlZA==")
		assert.Nil(t, device)
		assert.ErrorIs(t, err, identityDomain.ErrDeviceAlreadyApproved)
		f.devices.AssertNotCalled(t, "Approve")
	})
}

func TestDeviceUseCase_Revoke(t *testing.T) {
	t.Run("Error_ForeignDevice", func(t *testing.T) {
		f := newDeviceFixture(t)
		deviceID := uuid.Must(uuid.NewV7())

		f.devices.On("GetByID", mock.Anything, deviceID).
			Return(&identityDomain.Device{ID: deviceID, UserID: uuid.Must(uuid.NewV7())}, nil).Once()

		err := f.useCase.Revoke(context.Background(), uuid.Must(uuid.NewV7()), deviceID)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		f.devices.AssertNotCalled(t, "Delete")
	})

	t.Run("Success_OwnDevice", func(t *testing.T) {
		f := newDeviceFixture(t)
		userID := uuid.Must(uuid.NewV7())
		deviceID := uuid.Must(uuid.NewV7())

		f.devices.On("GetByID", mock.Anything, deviceID).
			Return(&identityDomain.Device{ID: deviceID, UserID: userID}, nil).Once()
		f.devices.On("Delete", mock.Anything, deviceID).Return(nil).Once()

		err := f.useCase.Revoke(context.Background(), userID, deviceID)
		require.NoError(t, err)
		f.devices.AssertExpectations(t)
	})
}
