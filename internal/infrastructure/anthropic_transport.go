package infrastructure

import (
	"context"
	"errors"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"leadbot/internal/config"
	"leadbot/internal/entities"
)

// anthropicTransport sends prompts through the Messages API. SDK retries
// are disabled; the gateway owns the retry policy.
type anthropicTransport struct {
	client      sdk.Client
	model       string
	maxTokens   int64
	temperature float64
}

func newAnthropicTransport(cfg config.AnthropicConfig, temperature float64, timeout time.Duration, baseURL string) *anthropicTransport {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &anthropicTransport{
		client:      sdk.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

func (t *anthropicTransport) send(ctx context.Context, segments []entities.Segment) (string, error) {
	params := sdk.MessageNewParams{
		Model:       sdk.Model(t.model),
		MaxTokens:   t.maxTokens,
		Temperature: sdk.Float(t.temperature),
	}
	for _, s := range segments {
		if s.Role == entities.RoleSystem {
			params.System = append(params.System, sdk.TextBlockParam{Text: s.Content})
			continue
		}
		params.Messages = append(params.Messages, sdk.NewUserMessage(sdk.NewTextBlock(s.Content)))
	}

	msg, err := t.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return "", &attemptError{
				status:        apiErr.StatusCode,
				serverMessage: serverMessage([]byte(apiErr.RawJSON())),
				err:           eris.Wrap(err, "anthropic: create message"),
			}
		}
		return "", &attemptError{network: true, err: eris.Wrap(err, "anthropic: create message")}
	}

	var sb strings.Builder
	for _, b := range msg.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &attemptError{status: 200, err: eris.New("anthropic: response has no text content")}
	}
	return sb.String(), nil
}
