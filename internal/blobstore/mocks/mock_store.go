package mocks

import (
	"context"

	"docanchor/internal/blobstore"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Upload(ctx context.Context, content []byte, name string) (blobstore.UploadResult, error) {
	args := m.Called(ctx, content, name)
	return args.Get(0).(blobstore.UploadResult), args.Error(1)
}

func (m *MockStore) IsAvailable(ctx context.Context, locator string) (bool, error) {
	args := m.Called(ctx, locator)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Download(ctx context.Context, locator string) ([]byte, error) {
	args := m.Called(ctx, locator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStore) Metadata(ctx context.Context, locator string) (blobstore.BlobMetadata, error) {
	args := m.Called(ctx, locator)
	return args.Get(0).(blobstore.BlobMetadata), args.Error(1)
}

func (m *MockStore) HealthCheck(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}
