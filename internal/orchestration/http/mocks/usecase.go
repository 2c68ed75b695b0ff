// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dsorch/orchestrator/internal/orchestration/domain"
	"github.com/dsorch/orchestrator/internal/orchestration/usecase"
)

// MockTransferUseCase is a mock implementation of TransferUseCase for testing.
type MockTransferUseCase struct {
	mock.Mock
}

// Orchestrate mocks the Orchestrate method of TransferUseCase.
func (m *MockTransferUseCase) Orchestrate(
	ctx context.Context,
	req domain.Request,
	originalRequest map[string]any,
) (*domain.Process, error) {
	args := m.Called(ctx, req, originalRequest)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Process), args.Error(1)
}

// MockStatusUseCase is a mock implementation of StatusUseCase for testing.
type MockStatusUseCase struct {
	mock.Mock
}

// List mocks the List method of StatusUseCase.
func (m *MockStatusUseCase) List(ctx context.Context) ([]*domain.Process, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Process), args.Error(1)
}

// Get mocks the Get method of StatusUseCase.
func (m *MockStatusUseCase) Get(ctx context.Context, id, clientHost string) (*usecase.ProcessStatus, error) {
	args := m.Called(ctx, id, clientHost)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ProcessStatus), args.Error(1)
}
