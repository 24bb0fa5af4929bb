package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"leadbot/internal/entities"
	"leadbot/internal/infrastructure"
	"leadbot/internal/interfaces"
	"leadbot/internal/usecases"
)

func init() {
	gin.SetMode(gin.TestMode)
	zap.ReplaceGlobals(zap.NewNop())
}

type mockPipeline struct {
	mock.Mock
}

func (m *mockPipeline) HandleMessage(ctx context.Context, text string, meta map[string]string, tenantID string) entities.PipelineResult {
	args := m.Called(ctx, text, meta, tenantID)
	return args.Get(0).(entities.PipelineResult)
}

func (m *mockPipeline) HandleCanonical(ctx context.Context, msg entities.CanonicalMessage, tenantID string) entities.PipelineResult {
	args := m.Called(ctx, msg, tenantID)
	return args.Get(0).(entities.PipelineResult)
}

func (m *mockPipeline) Respond(ctx context.Context, msg entities.CanonicalMessage, tenantID string, out interfaces.Messenger, replyTo string) (*entities.PipelineResult, error) {
	args := m.Called(ctx, msg, tenantID, out, replyTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PipelineResult), args.Error(1)
}

type mockUsage struct {
	mock.Mock
}

func (m *mockUsage) Summary(ctx context.Context, tenantID string) (usecases.UsageSummary, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(usecases.UsageSummary), args.Error(1)
}

type mockLinker struct {
	mock.Mock
}

func (m *mockLinker) Link(ctx context.Context, tenantID string) (infrastructure.WhatsAppStatus, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(infrastructure.WhatsAppStatus), args.Error(1)
}

func (m *mockLinker) Status(tenantID string) infrastructure.WhatsAppStatus {
	return m.Called(tenantID).Get(0).(infrastructure.WhatsAppStatus)
}

func (m *mockLinker) QR(tenantID string) string {
	return m.Called(tenantID).String(0)
}

type staticBots map[string]string

func (s staticBots) Status(tenantID string) (bool, string) {
	name, ok := s[tenantID]
	return ok, name
}

func (s staticBots) DisconnectBot(tenantID string) {
	delete(s, tenantID)
}

type recordingCache struct {
	invalidated []string
}

func (r *recordingCache) Invalidate(tenantID string) {
	r.invalidated = append(r.invalidated, tenantID)
}

type nopMessenger struct{}

func (nopMessenger) SendMessage(context.Context, string, string) error { return nil }
