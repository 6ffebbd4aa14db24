// Package mocks provides mock implementations for testing rotation HTTP handlers.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	rotationDomain "github.com/allisson/envie/internal/rotation/domain"
)

// MockRotationUseCase is a mock implementation of RotationUseCase.
type MockRotationUseCase struct {
	mock.Mock
}

func (m *MockRotationUseCase) Initiate(ctx context.Context, input *rotationDomain.InitiateInput) (*rotationDomain.PendingKeyRotation, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rotationDomain.PendingKeyRotation), args.Error(1)
}

func (m *MockRotationUseCase) Approve(ctx context.Context, rotationID, userID uuid.UUID, comment string, verifiedDecryption bool) (*rotationDomain.PendingKeyRotation, error) {
	args := m.Called(ctx, rotationID, userID, comment, verifiedDecryption)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rotationDomain.PendingKeyRotation), args.Error(1)
}

func (m *MockRotationUseCase) Reject(ctx context.Context, rotationID, userID uuid.UUID, comment string, verifiedDecryption bool) (*rotationDomain.PendingKeyRotation, error) {
	args := m.Called(ctx, rotationID, userID, comment, verifiedDecryption)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rotationDomain.PendingKeyRotation), args.Error(1)
}

func (m *MockRotationUseCase) Cancel(ctx context.Context, rotationID, userID uuid.UUID) (*rotationDomain.PendingKeyRotation, error) {
	args := m.Called(ctx, rotationID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rotationDomain.PendingKeyRotation), args.Error(1)
}

func (m *MockRotationUseCase) GetPending(ctx context.Context, projectID uuid.UUID) (*rotationDomain.PendingKeyRotation, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rotationDomain.PendingKeyRotation), args.Error(1)
}

func (m *MockRotationUseCase) ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]*rotationDomain.PendingKeyRotation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rotationDomain.PendingKeyRotation), args.Error(1)
}

func (m *MockRotationUseCase) SweepExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
