// Package mocks provides testify mocks for the identity use case interfaces.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	identityDomain "github.com/allisson/envie/internal/identity/domain"
	identityUseCase "github.com/allisson/envie/internal/identity/usecase"
)

// MockDeviceUseCase is a mock implementation of the DeviceUseCase interface.
type MockDeviceUseCase struct {
	mock.Mock
}

func (m *MockDeviceUseCase) Register(
	ctx context.Context,
	input *identityUseCase.RegisterDeviceInput,
) (*identityDomain.Device, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDomain.Device), args.Error(1)
}

func (m *MockDeviceUseCase) CreateLinkingCode(
	ctx context.Context,
	userID uuid.UUID,
	devicePublicKey string,
) (string, *identityDomain.LinkingCode, error) {
	args := m.Called(ctx, userID, devicePublicKey)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*identityDomain.LinkingCode), args.Error(2)
}

func (m *MockDeviceUseCase) RedeemLinkingCode(
	ctx context.Context,
	plainCode string,
) (*identityDomain.LinkingCode, error) {
	args := m.Called(ctx, plainCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDomain.LinkingCode), args.Error(1)
}

func (m *MockDeviceUseCase) Approve(
	ctx context.Context,
	userID, deviceID uuid.UUID,
	encryptedMasterKey string,
) (*identityDomain.Device, error) {
	args := m.Called(ctx, userID, deviceID, encryptedMasterKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDomain.Device), args.Error(1)
}

func (m *MockDeviceUseCase) List(ctx context.Context, userID uuid.UUID) ([]*identityDomain.Device, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identityDomain.Device), args.Error(1)
}

func (m *MockDeviceUseCase) Touch(ctx context.Context, deviceID uuid.UUID) (*identityDomain.Device, error) {
	args := m.Called(ctx, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDomain.Device), args.Error(1)
}

func (m *MockDeviceUseCase) Revoke(ctx context.Context, userID, deviceID uuid.UUID) error {
	args := m.Called(ctx, userID, deviceID)
	return args.Error(0)
}

func (m *MockDeviceUseCase) GetUserKey(ctx context.Context, userID uuid.UUID) (*identityDomain.UserKey, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDomain.UserKey), args.Error(1)
}

// MockTokenUseCase is a mock implementation of the TokenUseCase interface.
type MockTokenUseCase struct {
	mock.Mock
}

func (m *MockTokenUseCase) Create(
	ctx context.Context,
	input *identityUseCase.CreateTokenInput,
) (*identityDomain.ProjectToken, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDomain.ProjectToken), args.Error(1)
}

func (m *MockTokenUseCase) Authenticate(ctx context.Context, identityID string) (*identityDomain.ProjectToken, error) {
	args := m.Called(ctx, identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDomain.ProjectToken), args.Error(1)
}

func (m *MockTokenUseCase) ListByProject(
	ctx context.Context,
	projectID uuid.UUID,
	offset, limit int,
) ([]*identityDomain.ProjectToken, error) {
	args := m.Called(ctx, projectID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identityDomain.ProjectToken), args.Error(1)
}

func (m *MockTokenUseCase) Revoke(ctx context.Context, tokenID uuid.UUID) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

// MockMasterRotationUseCase is a mock implementation of the
// MasterRotationUseCase interface.
type MockMasterRotationUseCase struct {
	mock.Mock
}

func (m *MockMasterRotationUseCase) State(
	ctx context.Context,
	userID uuid.UUID,
) (*identityUseCase.MasterRotationState, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityUseCase.MasterRotationState), args.Error(1)
}

func (m *MockMasterRotationUseCase) Rotate(
	ctx context.Context,
	bundle *identityDomain.MasterRotationBundle,
) (*identityDomain.UserKey, error) {
	args := m.Called(ctx, bundle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDomain.UserKey), args.Error(1)
}
