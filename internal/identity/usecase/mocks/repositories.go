// Package mocks provides mock implementations for testing the identity use cases.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	identityDomain "github.com/allisson/envie/internal/identity/domain"
	projectDomain "github.com/allisson/envie/internal/project/domain"
)

// PassthroughTxManager runs the transactional function directly.
type PassthroughTxManager struct{}

func (PassthroughTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// MockDeviceRepository is a mock implementation of DeviceRepository.
type MockDeviceRepository struct {
	mock.Mock
}

func (m *MockDeviceRepository) Create(ctx context.Context, device *identityDomain.Device) error {
	args := m.Called(ctx, device)
	return args.Error(0)
}

func (m *MockDeviceRepository) GetByID(ctx context.Context, deviceID uuid.UUID) (*identityDomain.Device, error) {
	args := m.Called(ctx, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDomain.Device), args.Error(1)
}

func (m *MockDeviceRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*identityDomain.Device, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identityDomain.Device), args.Error(1)
}

func (m *MockDeviceRepository) ListApprovedByUser(ctx context.Context, userID uuid.UUID) ([]*identityDomain.Device, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identityDomain.Device), args.Error(1)
}

func (m *MockDeviceRepository) Approve(ctx context.Context, deviceID uuid.UUID, encryptedMasterKey string) error {
	args := m.Called(ctx, deviceID, encryptedMasterKey)
	return args.Error(0)
}

func (m *MockDeviceRepository) UpdateEncryptedMasterKey(ctx context.Context, deviceID uuid.UUID, encryptedMasterKey string) error {
	args := m.Called(ctx, deviceID, encryptedMasterKey)
	return args.Error(0)
}

func (m *MockDeviceRepository) TouchLastActive(ctx context.Context, deviceID uuid.UUID) error {
	args := m.Called(ctx, deviceID)
	return args.Error(0)
}

func (m *MockDeviceRepository) Delete(ctx context.Context, deviceID uuid.UUID) error {
	args := m.Called(ctx, deviceID)
	return args.Error(0)
}

// MockUserKeyRepository is a mock implementation of UserKeyRepository.
type MockUserKeyRepository struct {
	mock.Mock
}

func (m *MockUserKeyRepository) Get(ctx context.Context, userID uuid.UUID) (*identityDomain.UserKey, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDomain.UserKey), args.Error(1)
}

func (m *MockUserKeyRepository) GetForUpdate(ctx context.Context, userID uuid.UUID) (*identityDomain.UserKey, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDomain.UserKey), args.Error(1)
}

func (m *MockUserKeyRepository) Create(ctx context.Context, userKey *identityDomain.UserKey) error {
	args := m.Called(ctx, userKey)
	return args.Error(0)
}

func (m *MockUserKeyRepository) Update(ctx context.Context, userID uuid.UUID, publicKey string, masterKeyVersion int) error {
	args := m.Called(ctx, userID, publicKey, masterKeyVersion)
	return args.Error(0)
}

// MockLinkingCodeRepository is a mock implementation of LinkingCodeRepository.
type MockLinkingCodeRepository struct {
	mock.Mock
}

func (m *MockLinkingCodeRepository) Create(ctx context.Context, code *identityDomain.LinkingCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockLinkingCodeRepository) ListRedeemable(ctx context.Context, now time.Time) ([]*identityDomain.LinkingCode, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identityDomain.LinkingCode), args.Error(1)
}

func (m *MockLinkingCodeRepository) MarkUsed(ctx context.Context, codeID uuid.UUID, usedAt time.Time) error {
	args := m.Called(ctx, codeID, usedAt)
	return args.Error(0)
}

func (m *MockLinkingCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockProjectTokenRepository is a mock implementation of ProjectTokenRepository.
type MockProjectTokenRepository struct {
	mock.Mock
}

func (m *MockProjectTokenRepository) Create(ctx context.Context, token *identityDomain.ProjectToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockProjectTokenRepository) GetByIdentityHash(ctx context.Context, identityIDHash string) (*identityDomain.ProjectToken, error) {
	args := m.Called(ctx, identityIDHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDomain.ProjectToken), args.Error(1)
}

func (m *MockProjectTokenRepository) ListByProject(ctx context.Context, projectID uuid.UUID, offset, limit int) ([]*identityDomain.ProjectToken, error) {
	args := m.Called(ctx, projectID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identityDomain.ProjectToken), args.Error(1)
}

func (m *MockProjectTokenRepository) TouchLastUsed(ctx context.Context, tokenID uuid.UUID) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *MockProjectTokenRepository) Delete(ctx context.Context, tokenID uuid.UUID) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *MockProjectTokenRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(int64), args.Error(1)
}

// MockMembershipRepository is a mock implementation of MembershipRepository.
type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) ListUserTeamMemberships(ctx context.Context, userID uuid.UUID) ([]*projectDomain.TeamMember, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*projectDomain.TeamMember), args.Error(1)
}

func (m *MockMembershipRepository) UpdateTeamMemberKey(ctx context.Context, teamID, userID uuid.UUID, encryptedTeamKey string) error {
	args := m.Called(ctx, teamID, userID, encryptedTeamKey)
	return args.Error(0)
}

func (m *MockMembershipRepository) ListUserOrgMemberships(ctx context.Context, userID uuid.UUID) ([]*projectDomain.OrganizationMember, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*projectDomain.OrganizationMember), args.Error(1)
}

func (m *MockMembershipRepository) UpdateOrgMemberKey(ctx context.Context, orgID, userID uuid.UUID, encryptedOrgKey string) error {
	args := m.Called(ctx, orgID, userID, encryptedOrgKey)
	return args.Error(0)
}
