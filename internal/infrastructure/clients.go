package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"leadbot/internal/config"
)

const defaultGraphBaseURL = "https://graph.facebook.com"

// WhatsAppBusinessClient sends text replies through the WhatsApp Cloud API.
type WhatsAppBusinessClient struct {
	accessToken   string
	phoneNumberID string
	apiVersion    string
	baseURL       string
	http          *http.Client
}

// NewWhatsAppBusinessClient returns nil unless a token and phone number id
// are configured.
func NewWhatsAppBusinessClient(cfg config.MetaConfig) *WhatsAppBusinessClient {
	if cfg.AccessToken == "" || cfg.PhoneNumberID == "" {
		return nil
	}
	version := cfg.APIVersion
	if version == "" {
		version = "v19.0"
	}
	return &WhatsAppBusinessClient{
		accessToken:   cfg.AccessToken,
		phoneNumberID: cfg.PhoneNumberID,
		apiVersion:    version,
		baseURL:       defaultGraphBaseURL,
		http:          &http.Client{Timeout: 15 * time.Second},
	}
}

// GraphRecipient strips channel prefixes and the leading plus from an
// address such as "whatsapp:+919876543210".
func GraphRecipient(to string) string {
	to = strings.TrimPrefix(to, "whatsapp:")
	return strings.TrimPrefix(strings.TrimSpace(to), "+")
}

func (w *WhatsAppBusinessClient) SendMessage(ctx context.Context, to, content string) error {
	url := fmt.Sprintf("%s/%s/%s/messages", w.baseURL, w.apiVersion, w.phoneNumberID)
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                GraphRecipient(to),
		"type":              "text",
		"text": map[string]string{
			"body": content,
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "graph: marshal message")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return eris.Wrap(err, "graph: build request")
	}
	req.Header.Set("Authorization", "Bearer "+w.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "graph: send message")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return eris.Errorf("graph: send message: status %d: %s", resp.StatusCode, excerpt(body))
	}
	return nil
}
