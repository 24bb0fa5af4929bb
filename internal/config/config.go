package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval" mapstructure:"retrieval"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Qdrant    QdrantConfig    `yaml:"qdrant" mapstructure:"qdrant"`
	Leads     LeadsConfig     `yaml:"leads" mapstructure:"leads"`
	Tenants   TenantsConfig   `yaml:"tenants" mapstructure:"tenants"`
	WhatsApp  WhatsAppConfig  `yaml:"whatsapp" mapstructure:"whatsapp"`
	Telegram  TelegramConfig  `yaml:"telegram" mapstructure:"telegram"`
	Meta      MetaConfig      `yaml:"meta" mapstructure:"meta"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr          string   `yaml:"addr" mapstructure:"addr"`
	MaxBodyBytes  int64    `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RatePerSecond float64  `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst     int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	AllowOrigins  []string `yaml:"allow_origins" mapstructure:"allow_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// LLMConfig selects and configures the completion provider.
type LLMConfig struct {
	Provider         string             `yaml:"provider" mapstructure:"provider"`
	Temperature      float64            `yaml:"temperature" mapstructure:"temperature"`
	TimeoutSecs      int                `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries       int                `yaml:"max_retries" mapstructure:"max_retries"`
	RetryBaseDelayMs int                `yaml:"retry_base_delay_ms" mapstructure:"retry_base_delay_ms"`
	Groq             ChatProviderConfig `yaml:"groq" mapstructure:"groq"`
	Together         ChatProviderConfig `yaml:"together" mapstructure:"together"`
	Anthropic        AnthropicConfig    `yaml:"anthropic" mapstructure:"anthropic"`
}

// ChatProviderConfig configures an OpenAI-compatible chat completions endpoint.
type ChatProviderConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

type AnthropicConfig struct {
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

type RetrievalConfig struct {
	TopK int `yaml:"top_k" mapstructure:"top_k"`
}

// EmbeddingConfig configures the text embedding endpoint. Kind is "openai"
// or "ollama".
type EmbeddingConfig struct {
	Kind        string `yaml:"kind" mapstructure:"kind"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	Model       string `yaml:"model" mapstructure:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

type QdrantConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// LeadsConfig selects the lead store. An empty Store picks supabase when it
// is configured, then postgres, then none.
type LeadsConfig struct {
	Store    string         `yaml:"store" mapstructure:"store"`
	Supabase SupabaseConfig `yaml:"supabase" mapstructure:"supabase"`
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

type SupabaseConfig struct {
	URL   string `yaml:"url" mapstructure:"url"`
	Key   string `yaml:"key" mapstructure:"key"`
	Table string `yaml:"table" mapstructure:"table"`
}

type PostgresConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

type TenantsConfig struct {
	ConfigDir    string `yaml:"config_dir" mapstructure:"config_dir"`
	MappingsPath string `yaml:"mappings_path" mapstructure:"mappings_path"`
	CacheTTLSecs int    `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
}

// WhatsAppConfig lists tenants that own a linked WhatsApp device.
type WhatsAppConfig struct {
	DevicesDir string   `yaml:"devices_dir" mapstructure:"devices_dir"`
	Tenants    []string `yaml:"tenants" mapstructure:"tenants"`
}

// TelegramConfig maps tenant ids to bot tokens.
type TelegramConfig struct {
	Bots map[string]string `yaml:"bots" mapstructure:"bots"`
}

// MetaConfig configures the Graph API webhook and outbound sender.
type MetaConfig struct {
	AccessToken   string `yaml:"access_token" mapstructure:"access_token"`
	PhoneNumberID string `yaml:"phone_number_id" mapstructure:"phone_number_id"`
	VerifyToken   string `yaml:"verify_token" mapstructure:"verify_token"`
	APIVersion    string `yaml:"api_version" mapstructure:"api_version"`
}

// envAliases binds the flat environment names used by existing deployments.
var envAliases = map[string][]string{
	"llm.provider":                {"LLM_PROVIDER"},
	"llm.temperature":             {"LLM_TEMPERATURE"},
	"llm.max_retries":             {"RETRY_COUNT"},
	"llm.groq.api_key":            {"GROQ_API_KEY"},
	"llm.groq.model":              {"GROQ_MODEL"},
	"llm.together.api_key":        {"TOGETHER_API_KEY"},
	"llm.together.model":          {"TOGETHER_MODEL"},
	"llm.anthropic.api_key":       {"ANTHROPIC_API_KEY"},
	"llm.anthropic.model":         {"ANTHROPIC_MODEL"},
	"retrieval.top_k":             {"TOP_K"},
	"embedding.base_url":          {"EMBEDDING_URL"},
	"embedding.api_key":           {"EMBEDDING_API_KEY"},
	"embedding.model":             {"EMBEDDING_MODEL"},
	"qdrant.url":                  {"QDRANT_URL"},
	"qdrant.api_key":              {"QDRANT_API_KEY"},
	"leads.supabase.url":          {"SUPABASE_URL"},
	"leads.supabase.key":          {"SUPABASE_KEY"},
	"leads.supabase.table":        {"SUPABASE_TABLE"},
	"leads.postgres.database_url": {"DATABASE_URL"},
	"meta.access_token":           {"META_ACCESS_TOKEN", "WHATSAPP_ACCESS_TOKEN"},
	"meta.phone_number_id":        {"META_PHONE_NUMBER_ID", "WHATSAPP_PHONE_NUMBER_ID"},
	"meta.verify_token":           {"META_VERIFY_TOKEN"},
	"server.addr":                 {"SERVER_ADDR"},
	"log.level":                   {"LOG_LEVEL"},
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.rate_per_second", 5)
	v.SetDefault("server.rate_burst", 10)
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout_secs", 30)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.retry_base_delay_ms", 1000)
	v.SetDefault("llm.groq.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.together.base_url", "https://api.together.xyz/v1")
	v.SetDefault("llm.anthropic.max_tokens", 1024)
	v.SetDefault("retrieval.top_k", 2)
	v.SetDefault("embedding.kind", "openai")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.timeout_secs", 10)
	v.SetDefault("qdrant.timeout_secs", 10)
	v.SetDefault("leads.supabase.table", "leads")
	v.SetDefault("tenants.config_dir", "data/clients")
	v.SetDefault("tenants.mappings_path", "data/mappings.json")
	v.SetDefault("tenants.cache_ttl_secs", 0)
	v.SetDefault("whatsapp.devices_dir", "data/devices")
	v.SetDefault("meta.api_version", "v19.0")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// LeadStoreKind resolves which lead store to use.
func (c *Config) LeadStoreKind() string {
	switch strings.ToLower(c.Leads.Store) {
	case "supabase", "postgres", "none":
		return strings.ToLower(c.Leads.Store)
	}
	if c.Leads.Supabase.URL != "" && c.Leads.Supabase.Key != "" {
		return "supabase"
	}
	if c.Leads.Postgres.DatabaseURL != "" {
		return "postgres"
	}
	return "none"
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
