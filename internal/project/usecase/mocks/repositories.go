// Package mocks provides testify mocks for the project use case interfaces.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	keychainDomain "github.com/allisson/envie/internal/keychain/domain"
	projectDomain "github.com/allisson/envie/internal/project/domain"
)

// PassthroughTxManager runs the function directly without a transaction.
type PassthroughTxManager struct{}

func (PassthroughTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// MockProjectRepository is a mock implementation of the ProjectRepository interface.
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

func (m *MockProjectRepository) UpdateConfigChecksum(ctx context.Context, projectID uuid.UUID, configChecksum string) error {
	args := m.Called(ctx, projectID, configChecksum)
	return args.Error(0)
}

// MockConfigItemRepository is a mock implementation of the ConfigItemRepository interface.
type MockConfigItemRepository struct {
	mock.Mock
}

func (m *MockConfigItemRepository) Create(ctx context.Context, item *projectDomain.ConfigItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
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

func (m *MockConfigItemRepository) Delete(ctx context.Context, itemID uuid.UUID) error {
	args := m.Called(ctx, itemID)
	return args.Error(0)
}

// MockFileRepository is a mock implementation of the FileRepository interface.
type MockFileRepository struct {
	mock.Mock
}

func (m *MockFileRepository) Create(ctx context.Context, file *projectDomain.ProjectFile) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *MockFileRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*projectDomain.ProjectFile, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*projectDomain.ProjectFile), args.Error(1)
}

// MockTeamRepository is a mock implementation of the TeamRepository interface.
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
