package mocks

import (
	"context"

	"assetapi/internal/service"
	"assetapi/internal/validation"
	"github.com/stretchr/testify/mock"
)

type MockAssetService struct {
	mock.Mock
}

func (m *MockAssetService) Ingest(ctx context.Context, in service.IngestInput) (*service.AssetView, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AssetView), args.Error(1)
}

func (m *MockAssetService) List(ctx context.Context, f validation.Filter) (*service.AssetListResult, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AssetListResult), args.Error(1)
}

func (m *MockAssetService) Retrieve(ctx context.Context, id string) (*service.Download, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Download), args.Error(1)
}

func (m *MockAssetService) Remove(ctx context.Context, id string) (*service.Deleted, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Deleted), args.Error(1)
}
