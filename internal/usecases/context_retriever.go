package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"leadbot/internal/entities"
	"leadbot/internal/interfaces"
)

// CollectionName is the per-tenant knowledge base collection.
func CollectionName(tenantID string) string {
	return tenantID + "_kb"
}

// ContextRetriever fetches grounding snippets for a tenant. It fails
// closed: any embedding or search error yields no snippets.
type ContextRetriever struct {
	embedder interfaces.Embedder
	searcher interfaces.VectorSearcher
	log      *zap.Logger
}

// NewContextRetriever accepts nil capabilities; retrieval then always
// returns an empty result.
func NewContextRetriever(embedder interfaces.Embedder, searcher interfaces.VectorSearcher) *ContextRetriever {
	return &ContextRetriever{
		embedder: embedder,
		searcher: searcher,
		log:      zap.L().With(zap.String("component", "retriever")),
	}
}

// Retrieve returns up to topK snippets, best first.
func (r *ContextRetriever) Retrieve(ctx context.Context, cfg entities.TenantConfig, text string, topK int) []string {
	if r.embedder == nil || r.searcher == nil || topK <= 0 || strings.TrimSpace(text) == "" {
		return []string{}
	}
	collection := CollectionName(cfg.TenantID)

	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		r.warn(&entities.RetrievalError{Op: "embed", Collection: collection, Err: err})
		return []string{}
	}
	if len(vector) == 0 {
		r.warn(&entities.RetrievalError{Op: "embed", Collection: collection, Err: fmt.Errorf("empty vector")})
		return []string{}
	}

	hits, err := r.searcher.Search(ctx, collection, vector, topK)
	if err != nil {
		r.warn(&entities.RetrievalError{Op: "search", Collection: collection, Err: err})
		return []string{}
	}

	snippets := make([]string, 0, len(hits))
	for _, h := range hits {
		if len(snippets) == topK {
			break
		}
		snippets = append(snippets, SnippetText(h.Payload))
	}
	return snippets
}

func (r *ContextRetriever) warn(err *entities.RetrievalError) {
	r.log.Warn("retrieval failed, continuing without context",
		zap.String("op", err.Op),
		zap.String("collection", err.Collection),
		zap.Error(err),
	)
}

// SnippetText reduces a hit payload to one display string: the "text"
// field, then "content", else the serialized payload.
func SnippetText(payload map[string]any) string {
	if len(payload) == 0 {
		return "{}"
	}
	for _, key := range []string{"text", "content"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprint(payload)
	}
	return string(b)
}
