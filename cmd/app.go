package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"leadbot/internal/config"
	"leadbot/internal/entities"
	"leadbot/internal/infrastructure"
	"leadbot/internal/interfaces"
	"leadbot/internal/repository"
	"leadbot/internal/usecases"
)

// app holds the wired message core shared by the commands.
type app struct {
	Tenants   *repository.TenantConfigRepository
	Resolver  *usecases.TenantResolver
	Embedder  *infrastructure.EmbeddingClient
	Qdrant    *infrastructure.QdrantClient
	LeadStore interfaces.LeadStore
	Service   *usecases.MessageService
	Usage     *usecases.UsageUsecase

	pg *infrastructure.PostgresClient
}

// newTenancy loads tenant configuration and the routing table.
func newTenancy(cfg *config.Config) (*repository.TenantConfigRepository, *usecases.TenantResolver) {
	tenants := repository.NewTenantConfigRepository(cfg.Tenants.ConfigDir, time.Duration(cfg.Tenants.CacheTTLSecs)*time.Second)

	table, err := repository.LoadMappingTable(cfg.Tenants.MappingsPath)
	if err != nil {
		zap.L().Warn("mapping table unavailable, routing falls back to default",
			zap.String("path", cfg.Tenants.MappingsPath), zap.Error(err))
	}
	return tenants, usecases.NewTenantResolver(table)
}

// newLeadStore opens the configured lead store; nil means leads are not
// persisted.
func newLeadStore(ctx context.Context, cfg *config.Config) (interfaces.LeadStore, *infrastructure.PostgresClient, error) {
	switch kind := cfg.LeadStoreKind(); kind {
	case "supabase":
		sb := infrastructure.NewSupabaseClient(cfg.Leads.Supabase)
		if sb == nil {
			return nil, nil, &entities.ConfigurationError{Field: "leads.supabase", Reason: "url and key are required"}
		}
		return sb, nil, nil
	case "postgres":
		if cfg.Leads.Postgres.DatabaseURL == "" {
			return nil, nil, &entities.ConfigurationError{Field: "leads.postgres.database_url", Reason: "required"}
		}
		pg, err := infrastructure.NewPostgresClient(ctx, cfg.Leads.Postgres.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewLeadRepository(pg.Pool), pg, nil
	default:
		zap.L().Warn("no lead store configured, leads will not be saved")
		return nil, nil, nil
	}
}

// newApp wires the full pipeline. The completion provider is validated
// here so a misconfigured deployment fails at startup.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	gateway, err := infrastructure.NewCompletionGateway(cfg.LLM)
	if err != nil {
		return nil, eris.Wrap(err, "completion provider")
	}

	a := &app{
		Embedder: infrastructure.NewEmbeddingClient(cfg.Embedding),
		Qdrant:   infrastructure.NewQdrantClient(cfg.Qdrant),
	}
	a.Tenants, a.Resolver = newTenancy(cfg)

	a.LeadStore, a.pg, err = newLeadStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var (
		embedder interfaces.Embedder
		searcher interfaces.VectorSearcher
	)
	if a.Embedder != nil {
		embedder = a.Embedder
	}
	if a.Qdrant != nil {
		searcher = a.Qdrant
	}
	if embedder == nil || searcher == nil {
		zap.L().Warn("retrieval disabled, answers will use the fallback reply",
			zap.Bool("embedding", embedder != nil), zap.Bool("qdrant", searcher != nil))
	}

	a.Service = usecases.NewMessageService(
		a.Resolver,
		a.Tenants,
		usecases.NewLanguageClassifier(nil),
		usecases.NewContextRetriever(embedder, searcher),
		gateway,
		usecases.NewQuotaEnforcer(a.LeadStore),
		cfg.Retrieval.TopK,
	)
	a.Usage = usecases.NewUsageUsecase(a.Tenants, a.LeadStore)
	return a, nil
}

func (a *app) Close() {
	if a.pg != nil {
		a.pg.Close()
	}
}
