package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"leadbot/internal/config"
	"leadbot/internal/entities"
)

const (
	supabaseInsertTimeout = 15 * time.Second
	supabaseCountTimeout  = 10 * time.Second
)

// SupabaseClient stores leads through the PostgREST interface of a
// Supabase project.
type SupabaseClient struct {
	baseURL string
	key     string
	table   string
	http    *http.Client
}

// NewSupabaseClient returns nil unless both URL and key are set.
func NewSupabaseClient(cfg config.SupabaseConfig) *SupabaseClient {
	if cfg.URL == "" || cfg.Key == "" {
		return nil
	}
	table := cfg.Table
	if table == "" {
		table = "leads"
	}
	return &SupabaseClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		key:     cfg.Key,
		table:   table,
		http:    &http.Client{},
	}
}

type supabaseLeadRow struct {
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
	Intent     bool    `json:"intent"`
	Source     string  `json:"source"`
	RawText    string  `json:"raw_text"`
	CustomerID string  `json:"customer_id"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (c *SupabaseClient) endpoint() string {
	return c.baseURL + "/rest/v1/" + url.PathEscape(c.table)
}

func (c *SupabaseClient) authorize(req *http.Request) {
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
}

// SaveLead inserts one lead row. 200 and 201 are success.
func (c *SupabaseClient) SaveLead(ctx context.Context, tenantID string, lead entities.Lead) error {
	ctx, cancel := context.WithTimeout(ctx, supabaseInsertTimeout)
	defer cancel()

	body, err := json.Marshal(supabaseLeadRow{
		Phone:      nullable(lead.Phone),
		Email:      nullable(lead.Email),
		Intent:     lead.Intent,
		Source:     lead.Source,
		RawText:    lead.RawText,
		CustomerID: tenantID,
	})
	if err != nil {
		return eris.Wrap(err, "supabase: marshal lead")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "supabase: create request")
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "supabase: send insert")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return eris.Errorf("supabase: insert status %d: %s", resp.StatusCode, excerpt(respBody))
	}
	return nil
}

// CountSince counts the tenant's lead rows created at or after since.
func (c *SupabaseClient) CountSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, supabaseCountTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("select", "id")
	q.Set("customer_id", "eq."+tenantID)
	q.Set("created_at", "gte."+since.UTC().Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint()+"?"+q.Encode(), nil)
	if err != nil {
		return 0, eris.Wrap(err, "supabase: create request")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, eris.Wrap(err, "supabase: send count")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, eris.Wrap(err, "supabase: read count")
	}
	if resp.StatusCode != http.StatusOK {
		return 0, eris.Errorf("supabase: count status %d: %s", resp.StatusCode, excerpt(respBody))
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(respBody, &rows); err != nil {
		return 0, eris.Wrap(err, "supabase: unmarshal count")
	}
	return len(rows), nil
}
