package interfaces

import (
	"context"
	"time"

	"leadbot/internal/entities"
)

// Embedder turns text into a single dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchHit is one ranked result of a vector search.
type SearchHit struct {
	Score   float64
	Payload map[string]any
}

// VectorSearcher queries a named collection, best match first.
type VectorSearcher interface {
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]SearchHit, error)
}

// VectorPoint is one vector with its payload, as written to an index.
type VectorPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

// VectorIndex rebuilds and fills a named collection.
type VectorIndex interface {
	RecreateCollection(ctx context.Context, collection string, size int) error
	Upsert(ctx context.Context, collection string, points []VectorPoint) error
}

// LeadStore persists leads and counts them per tenant.
type LeadStore interface {
	SaveLead(ctx context.Context, tenantID string, lead entities.Lead) error
	CountSince(ctx context.Context, tenantID string, since time.Time) (int, error)
}

// CompletionGateway produces a completion for an ordered prompt.
type CompletionGateway interface {
	Complete(ctx context.Context, segments []entities.Segment) (string, error)
}

// TenantConfigStore resolves a tenant id to its configuration. It never
// fails; unknown tenants get the default configuration.
type TenantConfigStore interface {
	Get(ctx context.Context, tenantID string) entities.TenantConfig
}

// Messenger delivers a reply on an outbound channel.
type Messenger interface {
	SendMessage(ctx context.Context, to, text string) error
}

// Pipeline is the single entry point of the message-handling core.
type Pipeline interface {
	HandleMessage(ctx context.Context, text string, meta map[string]string, tenantID string) entities.PipelineResult
	HandleCanonical(ctx context.Context, msg entities.CanonicalMessage, tenantID string) entities.PipelineResult
}

// Responder runs the pipeline for a channel message and delivers the reply.
type Responder interface {
	Respond(ctx context.Context, msg entities.CanonicalMessage, tenantID string, out Messenger, replyTo string) (*entities.PipelineResult, error)
}
