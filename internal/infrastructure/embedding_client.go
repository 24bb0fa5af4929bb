package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"leadbot/internal/config"
)

const (
	EmbeddingKindOpenAI = "openai"
	EmbeddingKindOllama = "ollama"
)

// EmbeddingClient turns text into vectors using either an OpenAI-compatible
// /embeddings endpoint or Ollama's /api/embeddings.
type EmbeddingClient struct {
	kind    string
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// NewEmbeddingClient returns nil when no endpoint is configured; callers
// treat a nil embedder as "retrieval disabled".
func NewEmbeddingClient(cfg config.EmbeddingConfig) *EmbeddingClient {
	if cfg.BaseURL == "" {
		return nil
	}
	kind := strings.ToLower(cfg.Kind)
	if kind != EmbeddingKindOllama {
		kind = EmbeddingKindOpenAI
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EmbeddingClient{
		kind:    kind,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    &http.Client{Timeout: timeout},
	}
}

type openAIEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed generates an embedding for a single text.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var (
		path string
		req  any
	)
	if c.kind == EmbeddingKindOllama {
		path, req = "/api/embeddings", ollamaEmbedRequest{Model: c.model, Prompt: text}
	} else {
		path, req = "/embeddings", openAIEmbedRequest{Model: c.model, Input: text}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "embedding: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "embedding: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "embedding: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "embedding: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("embedding: unexpected status %d: %s", resp.StatusCode, excerpt(respBody))
	}

	var vector []float32
	if c.kind == EmbeddingKindOllama {
		var result ollamaEmbedResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return nil, eris.Wrap(err, "embedding: unmarshal response")
		}
		vector = result.Embedding
	} else {
		var result openAIEmbedResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return nil, eris.Wrap(err, "embedding: unmarshal response")
		}
		if len(result.Data) > 0 {
			vector = result.Data[0].Embedding
		}
	}
	if len(vector) == 0 {
		return nil, eris.New("embedding: response has no vector")
	}
	return vector, nil
}

// EmbedBatch embeds texts one at a time, in order.
func (c *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := c.Embed(ctx, text)
		if err != nil {
			return nil, eris.Wrapf(err, "embedding: text %d", i)
		}
		out[i] = v
	}
	return out, nil
}
