package usecases

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"leadbot/internal/interfaces"
)

const (
	maxChunkChars   = 800
	upsertBatchSize = 256
)

// ErrNoDocuments is returned when a tenant has nothing to index.
var ErrNoDocuments = eris.New("no documents to index")

// BatchEmbedder is implemented by embedders that accept many inputs at once.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Onboarder builds a tenant's knowledge base collection from its kb files.
type Onboarder struct {
	tenants  interfaces.TenantConfigStore
	embedder interfaces.Embedder
	index    interfaces.VectorIndex
	baseDir  string
	newID    func() string
	log      *zap.Logger
}

// NewOnboarder resolves relative kb paths against baseDir.
func NewOnboarder(tenants interfaces.TenantConfigStore, embedder interfaces.Embedder, index interfaces.VectorIndex, baseDir string) *Onboarder {
	return &Onboarder{
		tenants:  tenants,
		embedder: embedder,
		index:    index,
		baseDir:  baseDir,
		newID:    func() string { return uuid.NewString() },
		log:      zap.L().With(zap.String("component", "onboarding")),
	}
}

// ChunkText splits text on blank lines and packs paragraphs into chunks of
// at most maxChars, except where a single paragraph is longer.
func ChunkText(text string, maxChars int) []string {
	var (
		parts  []string
		cur    []string
		curLen int
	)
	for _, para := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		if len(cur) > 0 && curLen+len(para) > maxChars {
			parts = append(parts, strings.Join(cur, " "))
			cur, curLen = nil, 0
		}
		cur = append(cur, para)
		curLen += len(para)
	}
	if len(cur) > 0 {
		parts = append(parts, strings.Join(cur, " "))
	}
	return parts
}

// Onboard re-indexes tenantID and returns the number of chunks written.
func (o *Onboarder) Onboard(ctx context.Context, tenantID string) (int, error) {
	if o.embedder == nil || o.index == nil {
		return 0, eris.New("onboarding: embedding and vector index must be configured")
	}
	cfg := o.tenants.Get(ctx, tenantID)

	var docs []string
	for _, ref := range cfg.KBRefs {
		path := ref
		if !filepath.IsAbs(path) {
			path = filepath.Join(o.baseDir, path)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return 0, eris.Wrapf(err, "onboarding: read %s", ref)
		}
		docs = append(docs, ChunkText(string(b), maxChunkChars)...)
	}
	if len(docs) == 0 {
		return 0, eris.Wrapf(ErrNoDocuments, "onboarding: %s", cfg.TenantID)
	}

	vectors, err := o.embedAll(ctx, docs)
	if err != nil {
		return 0, err
	}

	collection := CollectionName(cfg.TenantID)
	if err := o.index.RecreateCollection(ctx, collection, len(vectors[0])); err != nil {
		return 0, eris.Wrap(err, "onboarding: recreate collection")
	}

	batch := make([]interfaces.VectorPoint, 0, upsertBatchSize)
	for i, doc := range docs {
		batch = append(batch, interfaces.VectorPoint{
			ID:      o.newID(),
			Vector:  vectors[i],
			Payload: map[string]any{"text": doc},
		})
		if len(batch) == upsertBatchSize || i == len(docs)-1 {
			if err := o.index.Upsert(ctx, collection, batch); err != nil {
				return 0, eris.Wrap(err, "onboarding: upsert")
			}
			batch = make([]interfaces.VectorPoint, 0, upsertBatchSize)
		}
	}

	o.log.Info("knowledge base indexed",
		zap.String("tenant_id", cfg.TenantID),
		zap.String("collection", collection),
		zap.Int("chunks", len(docs)),
	)
	return len(docs), nil
}

func (o *Onboarder) embedAll(ctx context.Context, docs []string) ([][]float32, error) {
	if b, ok := o.embedder.(BatchEmbedder); ok {
		vectors, err := b.EmbedBatch(ctx, docs)
		if err != nil {
			return nil, eris.Wrap(err, "onboarding: embed")
		}
		if len(vectors) != len(docs) || len(vectors[0]) == 0 {
			return nil, eris.Errorf("onboarding: got %d vectors for %d chunks", len(vectors), len(docs))
		}
		return vectors, nil
	}
	vectors := make([][]float32, len(docs))
	for i, d := range docs {
		v, err := o.embedder.Embed(ctx, d)
		if err != nil {
			return nil, eris.Wrapf(err, "onboarding: embed chunk %d", i)
		}
		vectors[i] = v
	}
	if len(vectors[0]) == 0 {
		return nil, eris.New("onboarding: empty embedding")
	}
	return vectors, nil
}
