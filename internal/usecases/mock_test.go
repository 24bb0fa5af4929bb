package usecases

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"leadbot/internal/entities"
	"leadbot/internal/interfaces"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// --- Lead store ---

type mockLeadStore struct {
	mock.Mock
}

func (m *mockLeadStore) SaveLead(ctx context.Context, tenantID string, lead entities.Lead) error {
	args := m.Called(ctx, tenantID, lead)
	return args.Error(0)
}

func (m *mockLeadStore) CountSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	args := m.Called(ctx, tenantID, since)
	return args.Int(0), args.Error(1)
}

// --- Embedder ---

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// --- Vector search ---

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, collection string, vector []float32, limit int) ([]interfaces.SearchHit, error) {
	args := m.Called(ctx, collection, vector, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.SearchHit), args.Error(1)
}

// --- Completion gateway ---

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Complete(ctx context.Context, segments []entities.Segment) (string, error) {
	args := m.Called(ctx, segments)
	return args.String(0), args.Error(1)
}

// --- Tenant config store ---

type staticTenantStore map[string]entities.TenantConfig

func (s staticTenantStore) Get(_ context.Context, tenantID string) entities.TenantConfig {
	if cfg, ok := s[tenantID]; ok {
		return cfg
	}
	return entities.DefaultTenantConfig(tenantID)
}

// --- Messenger ---

type mockMessenger struct {
	mock.Mock
}

func (m *mockMessenger) SendMessage(ctx context.Context, to, text string) error {
	args := m.Called(ctx, to, text)
	return args.Error(0)
}

// --- Vector index ---

type mockIndex struct {
	mock.Mock
}

func (m *mockIndex) RecreateCollection(ctx context.Context, collection string, size int) error {
	args := m.Called(ctx, collection, size)
	return args.Error(0)
}

func (m *mockIndex) Upsert(ctx context.Context, collection string, points []interfaces.VectorPoint) error {
	args := m.Called(ctx, collection, points)
	return args.Error(0)
}
