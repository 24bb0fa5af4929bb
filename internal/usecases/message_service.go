package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"leadbot/internal/entities"
	"leadbot/internal/interfaces"
)

const fallbackTemplate = "Sorry, I don't have information about that for %s. " +
	"Would you like me to connect you to a specialist or look up a nearby business?"

// FallbackReply is the fixed answer when no grounding context exists.
func FallbackReply(displayName string) string {
	return fmt.Sprintf(fallbackTemplate, displayName)
}

// SenderLimiter throttles channel traffic per sender.
type SenderLimiter interface {
	Allow(key string) bool
}

// MessageService runs the message pipeline: resolve tenant, classify,
// retrieve, compose, complete, then extract and enforce the lead. It holds
// no per-request state and is safe for concurrent use.
type MessageService struct {
	resolver   *TenantResolver
	tenants    interfaces.TenantConfigStore
	classifier *LanguageClassifier
	retriever  *ContextRetriever
	gateway    interfaces.CompletionGateway
	quota      *QuotaEnforcer
	topK       int
	limiter    SenderLimiter
	log        *zap.Logger
}

// NewMessageService wires the pipeline. A nil gateway makes every grounded
// answer an error reply; a nil quota enforcer disables lead storage.
func NewMessageService(
	resolver *TenantResolver,
	tenants interfaces.TenantConfigStore,
	classifier *LanguageClassifier,
	retriever *ContextRetriever,
	gateway interfaces.CompletionGateway,
	quota *QuotaEnforcer,
	topK int,
) *MessageService {
	if resolver == nil {
		resolver = NewTenantResolver(nil)
	}
	if classifier == nil {
		classifier = NewLanguageClassifier(nil)
	}
	if retriever == nil {
		retriever = NewContextRetriever(nil, nil)
	}
	if quota == nil {
		quota = NewQuotaEnforcer(nil)
	}
	if topK <= 0 {
		topK = 2
	}
	return &MessageService{
		resolver:   resolver,
		tenants:    tenants,
		classifier: classifier,
		retriever:  retriever,
		gateway:    gateway,
		quota:      quota,
		topK:       topK,
		log:        zap.L().With(zap.String("component", "pipeline")),
	}
}

// SetRateLimiter enables per-sender throttling for channel dispatch.
func (s *MessageService) SetRateLimiter(l SenderLimiter) {
	s.limiter = l
}

// HandleCanonical runs the pipeline for a channel message.
func (s *MessageService) HandleCanonical(ctx context.Context, msg entities.CanonicalMessage, tenantID string) entities.PipelineResult {
	return s.HandleMessage(ctx, msg.Text, msg.Metadata(), tenantID)
}

// HandleMessage is the pipeline entry point. It never fails: every
// downstream error degrades into a valid result.
func (s *MessageService) HandleMessage(ctx context.Context, text string, meta map[string]string, tenantID string) entities.PipelineResult {
	start := time.Now()

	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		tenantID = s.resolver.Resolve(meta["channel"], meta["to"], meta["from"], text)
	}
	cfg := s.tenantConfig(ctx, tenantID)

	cls := s.classifier.Classify(text)
	log := s.log.With(
		zap.String("tenant_id", tenantID),
		zap.String("channel", meta["channel"]),
		zap.String("language", string(cls.Tag)),
	)

	result := entities.PipelineResult{
		TenantID: tenantID,
		Language: cls.Tag,
		Contexts: []string{},
	}

	retrievalStart := time.Now()
	snippets := s.retriever.Retrieve(ctx, cfg, cls.Normalized, s.topK)
	result.Timing.RetrievalSeconds = time.Since(retrievalStart).Seconds()

	if len(snippets) == 0 {
		log.Info("no grounding context, using fallback reply")
		result.Reply = FallbackReply(cfg.DisplayName)
		result.Timing.TotalSeconds = time.Since(start).Seconds()
		return result
	}
	result.Contexts = snippets

	segments := ComposePrompt(cfg, cls.Tag, snippets, cls.Normalized, s.topK)

	completionStart := time.Now()
	reply, err := s.complete(ctx, segments)
	result.Timing.CompletionSeconds = time.Since(completionStart).Seconds()
	if err != nil {
		log.Warn("completion failed", zap.Error(err))
		reply = errorReply(err)
	}
	result.Reply = reply

	if candidate, ok := ExtractLead(cls.Normalized, cfg.LeadPolicy.Rule); ok {
		source := meta["channel"]
		if source == "" {
			source = "unknown"
		}
		lead := entities.NewLead(candidate, cls.Normalized, source)
		lead = s.quota.Enforce(ctx, lead, tenantID, cfg.LeadPolicy.FreeLeadsPerMonth)
		log.Info("lead captured",
			zap.Bool("saved", lead.Saved),
			zap.Bool("overage", lead.Overage),
			zap.Int("current_count", lead.CurrentCount),
		)
		result.Lead = &lead
	}

	result.Timing.TotalSeconds = time.Since(start).Seconds()
	return result
}

func (s *MessageService) tenantConfig(ctx context.Context, tenantID string) entities.TenantConfig {
	var cfg entities.TenantConfig
	if s.tenants != nil {
		cfg = s.tenants.Get(ctx, tenantID)
	} else {
		cfg = entities.DefaultTenantConfig(tenantID)
	}
	cfg.TenantID = tenantID
	return cfg.WithDefaults()
}

func (s *MessageService) complete(ctx context.Context, segments []entities.Segment) (string, error) {
	if s.gateway == nil {
		return "", &entities.ProviderError{Provider: "none", Err: eris.New("no completion provider configured")}
	}
	return s.gateway.Complete(ctx, segments)
}

// errorReply turns a completion failure into a user-facing sentence.
func errorReply(err error) string {
	detail := err.Error()
	var pe *entities.ProviderError
	if errors.As(err, &pe) {
		detail = pe.Detail()
	}
	return "Sorry, something went wrong while preparing your answer: " + detail
}

// Respond runs the pipeline for a channel message and sends the reply to
// replyTo through out. Senders over their rate limit are dropped.
func (s *MessageService) Respond(ctx context.Context, msg entities.CanonicalMessage, tenantID string, out interfaces.Messenger, replyTo string) (*entities.PipelineResult, error) {
	if strings.TrimSpace(msg.Text) == "" {
		return nil, nil
	}
	if s.limiter != nil && msg.From != "" && !s.limiter.Allow(msg.From) {
		s.log.Info("sender rate limited", zap.String("from", msg.From), zap.String("channel", string(msg.Channel)))
		return nil, nil
	}

	result := s.HandleCanonical(ctx, msg, tenantID)
	if out == nil {
		return &result, nil
	}
	if err := out.SendMessage(ctx, replyTo, result.Reply); err != nil {
		return &result, eris.Wrapf(err, "send reply to %s", replyTo)
	}
	return &result, nil
}
