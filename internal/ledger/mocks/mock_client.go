package mocks

import (
	"context"

	"docanchor/internal/ledger"

	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Record(ctx context.Context, id, hash string) (string, error) {
	args := m.Called(ctx, id, hash)
	return args.String(0), args.Error(1)
}

func (m *MockClient) Verify(ctx context.Context, id, expected string) (bool, error) {
	args := m.Called(ctx, id, expected)
	return args.Bool(0), args.Error(1)
}

func (m *MockClient) Read(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockClient) BatchRecord(ctx context.Context, items []ledger.BatchItem) (string, error) {
	args := m.Called(ctx, items)
	return args.String(0), args.Error(1)
}

func (m *MockClient) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockClient) NetworkInfo(ctx context.Context) (ledger.NetworkInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(ledger.NetworkInfo), args.Error(1)
}

func (m *MockClient) HealthCheck(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}
