package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"leadbot/internal/config"
	"leadbot/internal/interfaces"
)

// QdrantClient talks to Qdrant's REST API. It is the only vector search
// adapter.
type QdrantClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewQdrantClient returns nil when no URL is configured.
func NewQdrantClient(cfg config.QdrantConfig) *QdrantClient {
	if cfg.URL == "" {
		return nil
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &QdrantClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type qdrantSearchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type qdrantSearchResponse struct {
	Result []struct {
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// Search returns up to limit hits from collection, best first.
func (c *QdrantClient) Search(ctx context.Context, collection string, vector []float32, limit int) ([]interfaces.SearchHit, error) {
	var resp qdrantSearchResponse
	err := c.do(ctx, http.MethodPost, "/collections/"+url.PathEscape(collection)+"/points/search",
		qdrantSearchRequest{Vector: vector, Limit: limit, WithPayload: true}, &resp)
	if err != nil {
		return nil, eris.Wrapf(err, "qdrant: search %s", collection)
	}

	hits := make([]interfaces.SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, interfaces.SearchHit{Score: r.Score, Payload: r.Payload})
	}
	return hits, nil
}

// RecreateCollection drops collection if present and creates it with
// cosine distance vectors of the given size.
func (c *QdrantClient) RecreateCollection(ctx context.Context, collection string, size int) error {
	path := "/collections/" + url.PathEscape(collection)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil && !isStatus(err, http.StatusNotFound) {
		return eris.Wrapf(err, "qdrant: delete %s", collection)
	}
	body := map[string]any{
		"vectors": map[string]any{"size": size, "distance": "Cosine"},
	}
	if err := c.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return eris.Wrapf(err, "qdrant: create %s", collection)
	}
	return nil
}

// Upsert writes points and waits for them to be indexed.
func (c *QdrantClient) Upsert(ctx context.Context, collection string, points []interfaces.VectorPoint) error {
	path := "/collections/" + url.PathEscape(collection) + "/points?wait=true"
	if err := c.do(ctx, http.MethodPut, path, map[string]any{"points": points}, nil); err != nil {
		return eris.Wrapf(err, "qdrant: upsert %d points into %s", len(points), collection)
	}
	return nil
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.status, e.body)
}

func isStatus(err error, status int) bool {
	var se *statusError
	return errors.As(err, &se) && se.status == status
}

func (c *QdrantClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return eris.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{status: resp.StatusCode, body: excerpt(respBody)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
