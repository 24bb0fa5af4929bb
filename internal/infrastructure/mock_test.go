package infrastructure

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"leadbot/internal/entities"
	"leadbot/internal/interfaces"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type mockResponder struct {
	mock.Mock
}

func (m *mockResponder) Respond(ctx context.Context, msg entities.CanonicalMessage, tenantID string, out interfaces.Messenger, replyTo string) (*entities.PipelineResult, error) {
	args := m.Called(ctx, msg, tenantID, out, replyTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PipelineResult), args.Error(1)
}

type recordingMessenger struct {
	sent []string
}

func (r *recordingMessenger) SendMessage(_ context.Context, to, text string) error {
	r.sent = append(r.sent, to+"|"+text)
	return nil
}
