package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"leadbot/internal/config"
	"leadbot/internal/entities"
)

const (
	ProviderGroq      = "groq"
	ProviderTogether  = "together"
	ProviderAnthropic = "anthropic"
)

// attemptError is the outcome of one failed provider call.
type attemptError struct {
	status        int // 0 when no HTTP response was received
	network       bool
	serverMessage string
	err           error
}

func (e *attemptError) Error() string {
	if e.serverMessage != "" {
		return e.serverMessage
	}
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("status %d", e.status)
}

func (e *attemptError) Unwrap() error { return e.err }

// retryable reports whether another attempt may succeed: transport
// failures and 5xx responses only.
func (e *attemptError) retryable() bool {
	return e.network || e.status >= http.StatusInternalServerError
}

// chatTransport sends one completion request for a provider.
type chatTransport interface {
	send(ctx context.Context, segments []entities.Segment) (string, error)
}

// GatewayOption configures a CompletionGateway.
type GatewayOption func(*CompletionGateway)

// WithHTTPClient overrides the http.Client of HTTP-based providers.
func WithHTTPClient(hc *http.Client) GatewayOption {
	return func(g *CompletionGateway) {
		g.httpClient = hc
	}
}

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(url string) GatewayOption {
	return func(g *CompletionGateway) {
		g.baseURL = url
	}
}

// WithSleep replaces the backoff sleep.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) GatewayOption {
	return func(g *CompletionGateway) {
		g.sleep = sleep
	}
}

// CompletionGateway sends prompts to the single configured provider with
// bounded retry. It is safe for concurrent use.
type CompletionGateway struct {
	provider   string
	transport  chatTransport
	maxRetries int
	baseDelay  time.Duration
	sleep      func(ctx context.Context, d time.Duration) error

	httpClient *http.Client
	baseURL    string
	log        *zap.Logger
}

// NewCompletionGateway selects the provider from cfg. Exactly one known
// provider with its key and model must be configured.
func NewCompletionGateway(cfg config.LLMConfig, opts ...GatewayOption) (*CompletionGateway, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		return nil, &entities.ConfigurationError{Field: "llm.provider", Reason: "not set; expected groq, together or anthropic"}
	}

	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	g := &CompletionGateway{
		provider:   provider,
		maxRetries: maxRetries,
		baseDelay:  time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
		sleep:      sleepContext,
		httpClient: &http.Client{Timeout: timeout},
		log:        zap.L().With(zap.String("component", "completion"), zap.String("provider", provider)),
	}
	for _, o := range opts {
		o(g)
	}

	switch provider {
	case ProviderGroq, ProviderTogether:
		pc := cfg.Groq
		if provider == ProviderTogether {
			pc = cfg.Together
		}
		if err := requireProviderFields(provider, pc.APIKey, pc.Model); err != nil {
			return nil, err
		}
		baseURL := pc.BaseURL
		if g.baseURL != "" {
			baseURL = g.baseURL
		}
		if baseURL == "" {
			return nil, &entities.ConfigurationError{Field: "llm." + provider + ".base_url", Reason: "not set"}
		}
		g.transport = &openAIChatTransport{
			apiKey:      pc.APIKey,
			model:       pc.Model,
			url:         strings.TrimRight(baseURL, "/") + "/chat/completions",
			temperature: cfg.Temperature,
			http:        g.httpClient,
		}
	case ProviderAnthropic:
		ac := cfg.Anthropic
		if err := requireProviderFields(provider, ac.APIKey, ac.Model); err != nil {
			return nil, err
		}
		g.transport = newAnthropicTransport(ac, cfg.Temperature, timeout, g.baseURL)
	default:
		return nil, &entities.ConfigurationError{
			Field:  "llm.provider",
			Reason: fmt.Sprintf("unsupported provider %q; expected groq, together or anthropic", cfg.Provider),
		}
	}

	return g, nil
}

func requireProviderFields(provider, apiKey, model string) error {
	if apiKey == "" {
		return &entities.ConfigurationError{Field: "llm." + provider + ".api_key", Reason: "required"}
	}
	if model == "" {
		return &entities.ConfigurationError{Field: "llm." + provider + ".model", Reason: "required"}
	}
	return nil
}

// Provider returns the active provider name.
func (g *CompletionGateway) Provider() string { return g.provider }

// Complete sends segments to the provider. Network errors and 5xx
// responses are retried up to maxRetries times with linear backoff; any
// other failure returns immediately. Failures are *entities.ProviderError.
func (g *CompletionGateway) Complete(ctx context.Context, segments []entities.Segment) (string, error) {
	var last *attemptError
	attempts := 0
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		attempts++
		text, err := g.transport.send(ctx, segments)
		if err == nil {
			return text, nil
		}

		var ae *attemptError
		if !errors.As(err, &ae) {
			ae = &attemptError{network: true, err: err}
		}
		last = ae

		if !ae.retryable() || attempt == g.maxRetries || ctx.Err() != nil {
			break
		}

		delay := g.baseDelay * time.Duration(attempt+1)
		g.log.Warn("completion attempt failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("status", ae.status),
			zap.Duration("backoff", delay),
			zap.Error(ae),
		)
		if err := g.sleep(ctx, delay); err != nil {
			break
		}
	}

	return "", &entities.ProviderError{
		Provider:      g.provider,
		StatusCode:    last.status,
		Attempts:      attempts,
		ServerMessage: last.serverMessage,
		Err:           last.err,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
