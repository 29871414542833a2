package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docanchor/internal/model"
	"docanchor/internal/service"
)

type MockAnchorService struct {
	mock.Mock
}

func (m *MockAnchorService) Upload(ctx context.Context, ownerRef, propertyRef string, content []byte, name string) (*service.UploadOutcome, error) {
	args := m.Called(ctx, ownerRef, propertyRef, content, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadOutcome), args.Error(1)
}

func (m *MockAnchorService) Update(ctx context.Context, id, requester string, newContent []byte, reason string) (*model.Document, error) {
	args := m.Called(ctx, id, requester, newContent, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockAnchorService) Verify(ctx context.Context, id, reviewerRef string) (*model.Document, error) {
	args := m.Called(ctx, id, reviewerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockAnchorService) Reject(ctx context.Context, id, reviewerRef, reason string) (*model.Document, error) {
	args := m.Called(ctx, id, reviewerRef, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockAnchorService) Archive(ctx context.Context, id, requester string) error {
	args := m.Called(ctx, id, requester)
	return args.Error(0)
}

func (m *MockAnchorService) BatchVerify(ctx context.Context, ids []string, reviewerRef string) (*service.BatchOutcome, error) {
	args := m.Called(ctx, ids, reviewerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchOutcome), args.Error(1)
}

func (m *MockAnchorService) BatchReject(ctx context.Context, ids []string, reviewerRef, reason string) (*service.BatchOutcome, error) {
	args := m.Called(ctx, ids, reviewerRef, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchOutcome), args.Error(1)
}

func (m *MockAnchorService) Get(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockAnchorService) List(ctx context.Context, limit, offset int) (*service.DocumentListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentListResult), args.Error(1)
}
