package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docanchor/internal/service"
)

type MockIntegrityService struct {
	mock.Mock
}

func (m *MockIntegrityService) Check(ctx context.Context, id string) (*service.IntegrityResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IntegrityResult), args.Error(1)
}

func (m *MockIntegrityService) BatchCheck(ctx context.Context, ids []string) (*service.BatchIntegrityResult, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchIntegrityResult), args.Error(1)
}
