// Package mocks provides mock implementations for testing the rotation use case.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	keychainDomain "github.com/allisson/envie/internal/keychain/domain"
	projectDomain "github.com/allisson/envie/internal/project/domain"
	rotationDomain "github.com/allisson/envie/internal/rotation/domain"
)

// PassthroughTxManager runs the transactional function directly; use case
// tests assert repository interactions, not transaction plumbing.
type PassthroughTxManager struct{}

func (PassthroughTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// MockRotationRepository is a mock implementation of RotationRepository.
type MockRotationRepository struct {
	mock.Mock
}

func (m *MockRotationRepository) Create(ctx context.Context, rotation *rotationDomain.PendingKeyRotation) error {
	args := m.Called(ctx, rotation)
	return args.Error(0)
}

func (m *MockRotationRepository) GetByID(ctx context.Context, rotationID uuid.UUID) (*rotationDomain.PendingKeyRotation, error) {
	args := m.Called(ctx, rotationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rotationDomain.PendingKeyRotation), args.Error(1)
}

func (m *MockRotationRepository) GetByIDForUpdate(ctx context.Context, rotationID uuid.UUID) (*rotationDomain.PendingKeyRotation, error) {
	args := m.Called(ctx, rotationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rotationDomain.PendingKeyRotation), args.Error(1)
}

func (m *MockRotationRepository) GetPendingByProject(ctx context.Context, projectID uuid.UUID) (*rotationDomain.PendingKeyRotation, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rotationDomain.PendingKeyRotation), args.Error(1)
}

func (m *MockRotationRepository) CreateApproval(ctx context.Context, approval *rotationDomain.KeyRotationApproval) error {
	args := m.Called(ctx, approval)
	return args.Error(0)
}

func (m *MockRotationRepository) UpdateStatusIf(ctx context.Context, rotationID uuid.UUID, from, to rotationDomain.Status) error {
	args := m.Called(ctx, rotationID, from, to)
	return args.Error(0)
}

func (m *MockRotationRepository) ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]*rotationDomain.PendingKeyRotation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rotationDomain.PendingKeyRotation), args.Error(1)
}

func (m *MockRotationRepository) ExpireSweep(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockProjectRepository is a mock implementation of ProjectRepository.
type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) GetByID(ctx context.Context, projectID uuid.UUID) (*projectDomain.Project, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*projectDomain.Project), args.Error(1)
}

func (m *MockProjectRepository) GetByIDForUpdate(ctx context.Context, projectID uuid.UUID) (*projectDomain.Project, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*projectDomain.Project), args.Error(1)
}

func (m *MockProjectRepository) UpdateKeyState(ctx context.Context, projectID uuid.UUID, keyVersion uint, configChecksum string) error {
	args := m.Called(ctx, projectID, keyVersion, configChecksum)
	return args.Error(0)
}

// MockConfigItemRepository is a mock implementation of ConfigItemRepository.
type MockConfigItemRepository struct {
	mock.Mock
}

func (m *MockConfigItemRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*projectDomain.ConfigItem, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*projectDomain.ConfigItem), args.Error(1)
}

func (m *MockConfigItemRepository) UpdateValueCiphertext(ctx context.Context, itemID uuid.UUID, valueCiphertext string) error {
	args := m.Called(ctx, itemID, valueCiphertext)
	return args.Error(0)
}

// MockFileRepository is a mock implementation of FileRepository.
type MockFileRepository struct {
	mock.Mock
}

func (m *MockFileRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*projectDomain.ProjectFile, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*projectDomain.ProjectFile), args.Error(1)
}

func (m *MockFileRepository) UpdateFileKey(ctx context.Context, fileID uuid.UUID, encryptedFileKey string) error {
	args := m.Called(ctx, fileID, encryptedFileKey)
	return args.Error(0)
}

// MockTeamRepository is a mock implementation of TeamRepository.
type MockTeamRepository struct {
	mock.Mock
}

func (m *MockTeamRepository) GetProjectAccess(ctx context.Context, projectID, userID uuid.UUID) (*keychainDomain.ProjectAccess, error) {
	args := m.Called(ctx, projectID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keychainDomain.ProjectAccess), args.Error(1)
}

func (m *MockTeamRepository) ListTeamProjects(ctx context.Context, projectID uuid.UUID) ([]*projectDomain.TeamProject, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*projectDomain.TeamProject), args.Error(1)
}

func (m *MockTeamRepository) UpdateTeamProjectKey(ctx context.Context, teamID, projectID uuid.UUID, encryptedProjectKey string) error {
	args := m.Called(ctx, teamID, projectID, encryptedProjectKey)
	return args.Error(0)
}

func (m *MockTeamRepository) CountProjectAdmins(ctx context.Context, projectID uuid.UUID) (int, error) {
	args := m.Called(ctx, projectID)
	return args.Int(0), args.Error(1)
}

func (m *MockTeamRepository) IsProjectAdmin(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, projectID, userID)
	return args.Bool(0), args.Error(1)
}

// MockProjectTokenRepository is a mock implementation of ProjectTokenRepository.
type MockProjectTokenRepository struct {
	mock.Mock
}

func (m *MockProjectTokenRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(int64), args.Error(1)
}
