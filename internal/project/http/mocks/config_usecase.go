// Package mocks provides testify mocks for the project HTTP layer.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	keychainDomain "github.com/allisson/envie/internal/keychain/domain"
	projectDomain "github.com/allisson/envie/internal/project/domain"
	projectUseCase "github.com/allisson/envie/internal/project/usecase"
)

// MockConfigUseCase is a mock implementation of the ConfigUseCase interface.
type MockConfigUseCase struct {
	mock.Mock
}

func (m *MockConfigUseCase) GetProject(ctx context.Context, projectID, userID uuid.UUID) (*projectDomain.Project, error) {
	args := m.Called(ctx, projectID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*projectDomain.Project), args.Error(1)
}

func (m *MockConfigUseCase) GetAccess(ctx context.Context, projectID, userID uuid.UUID) (*keychainDomain.ProjectAccess, error) {
	args := m.Called(ctx, projectID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keychainDomain.ProjectAccess), args.Error(1)
}

func (m *MockConfigUseCase) ListItems(ctx context.Context, projectID, userID uuid.UUID) ([]*projectDomain.ConfigItem, error) {
	args := m.Called(ctx, projectID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*projectDomain.ConfigItem), args.Error(1)
}

func (m *MockConfigUseCase) SetItem(
	ctx context.Context,
	projectID, userID uuid.UUID,
	name, valueCiphertext string,
) (*projectDomain.ConfigItem, error) {
	args := m.Called(ctx, projectID, userID, name, valueCiphertext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*projectDomain.ConfigItem), args.Error(1)
}

func (m *MockConfigUseCase) DeleteItem(ctx context.Context, projectID, userID uuid.UUID, name string) error {
	args := m.Called(ctx, projectID, userID, name)
	return args.Error(0)
}

func (m *MockConfigUseCase) ListFiles(ctx context.Context, projectID, userID uuid.UUID) ([]*projectDomain.ProjectFile, error) {
	args := m.Called(ctx, projectID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*projectDomain.ProjectFile), args.Error(1)
}

func (m *MockConfigUseCase) CreateFile(
	ctx context.Context,
	userID uuid.UUID,
	input *projectUseCase.CreateFileInput,
) (*projectDomain.ProjectFile, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*projectDomain.ProjectFile), args.Error(1)
}

func (m *MockConfigUseCase) Snapshot(ctx context.Context, projectID uuid.UUID) (*projectUseCase.ProjectSnapshot, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*projectUseCase.ProjectSnapshot), args.Error(1)
}
