package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"leadbot/internal/entities"
	"leadbot/internal/interfaces"
)

func TestRetrieveReturnsSnippetsInOrder(t *testing.T) {
	ctx := context.Background()
	emb := &mockEmbedder{}
	emb.On("Embed", ctx, "opening hours").Return([]float32{0.1, 0.2}, nil)
	srch := &mockSearcher{}
	srch.On("Search", ctx, "acme_kb", []float32{0.1, 0.2}, 2).Return([]interfaces.SearchHit{
		{Score: 0.9, Payload: map[string]any{"text": "Open 9-5"}},
		{Score: 0.8, Payload: map[string]any{"content": "Closed Sundays"}},
	}, nil)

	r := NewContextRetriever(emb, srch)
	got := r.Retrieve(ctx, entities.TenantConfig{TenantID: "acme"}, "opening hours", 2)

	assert.Equal(t, []string{"Open 9-5", "Closed Sundays"}, got)
	emb.AssertExpectations(t)
	srch.AssertExpectations(t)
}

func TestRetrieveFailsClosed(t *testing.T) {
	ctx := context.Background()
	cfg := entities.TenantConfig{TenantID: "acme"}

	t.Run("embedding error", func(t *testing.T) {
		emb := &mockEmbedder{}
		emb.On("Embed", ctx, mock.Anything).Return(nil, errors.New("connection refused"))
		srch := &mockSearcher{}

		got := NewContextRetriever(emb, srch).Retrieve(ctx, cfg, "hi", 2)
		assert.Empty(t, got)
		srch.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing collection", func(t *testing.T) {
		emb := &mockEmbedder{}
		emb.On("Embed", ctx, mock.Anything).Return([]float32{1}, nil)
		srch := &mockSearcher{}
		srch.On("Search", ctx, "acme_kb", mock.Anything, 2).Return(nil, errors.New("status 404"))

		got := NewContextRetriever(emb, srch).Retrieve(ctx, cfg, "hi", 2)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("not configured", func(t *testing.T) {
		got := NewContextRetriever(nil, nil).Retrieve(ctx, cfg, "hi", 2)
		assert.Empty(t, got)
	})
}

func TestSnippetText(t *testing.T) {
	assert.Equal(t, "a", SnippetText(map[string]any{"text": "a", "content": "b"}))
	assert.Equal(t, "b", SnippetText(map[string]any{"content": "b"}))
	assert.Equal(t, `{"price":10,"title":"Pizza"}`, SnippetText(map[string]any{"title": "Pizza", "price": 10}))
	assert.Equal(t, "{}", SnippetText(nil))
	assert.Equal(t, "{}", SnippetText(map[string]any{}))
}

func TestRetrieveKeepsEmptyPayloadHit(t *testing.T) {
	ctx := context.Background()
	emb := &mockEmbedder{}
	emb.On("Embed", ctx, "menu").Return([]float32{0.5}, nil)
	srch := &mockSearcher{}
	srch.On("Search", ctx, "acme_kb", []float32{0.5}, 2).Return([]interfaces.SearchHit{
		{Score: 0.7, Payload: map[string]any{}},
	}, nil)

	got := NewContextRetriever(emb, srch).Retrieve(ctx, entities.TenantConfig{TenantID: "acme"}, "menu", 2)
	assert.Equal(t, []string{"{}"}, got)
}
