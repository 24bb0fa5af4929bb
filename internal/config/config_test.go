package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 0.001)
	assert.Equal(t, 30, cfg.LLM.TimeoutSecs)
	assert.Equal(t, 2, cfg.LLM.MaxRetries)
	assert.Equal(t, 1000, cfg.LLM.RetryBaseDelayMs)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.LLM.Groq.BaseURL)
	assert.Equal(t, "https://api.together.xyz/v1", cfg.LLM.Together.BaseURL)
	assert.Equal(t, 2, cfg.Retrieval.TopK)
	assert.Equal(t, 10, cfg.Embedding.TimeoutSecs)
	assert.Equal(t, "leads", cfg.Leads.Supabase.Table)
	assert.Equal(t, "data/clients", cfg.Tenants.ConfigDir)
	assert.Equal(t, "data/mappings.json", cfg.Tenants.MappingsPath)
	assert.Empty(t, cfg.LLM.Provider)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
llm:
  provider: together
  together:
    api_key: tk
    model: mistral
retrieval:
  top_k: 4
telegram:
  bots:
    acme: "123:abc"
whatsapp:
  tenants: [acme, bistro]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "together", cfg.LLM.Provider)
	assert.Equal(t, "tk", cfg.LLM.Together.APIKey)
	assert.Equal(t, "mistral", cfg.LLM.Together.Model)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.Equal(t, "123:abc", cfg.Telegram.Bots["acme"])
	assert.Equal(t, []string{"acme", "bistro"}, cfg.WhatsApp.Tenants)
	// Defaults still apply for unset values
	assert.Equal(t, 2, cfg.LLM.MaxRetries)
}

func TestLoadLegacyEnvNames(t *testing.T) {
	chdirTemp(t)

	t.Setenv("LLM_PROVIDER", "groq")
	t.Setenv("GROQ_API_KEY", "gk")
	t.Setenv("GROQ_MODEL", "llama3-8b")
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("SUPABASE_URL", "https://x.supabase.co")
	t.Setenv("SUPABASE_KEY", "sk")
	t.Setenv("RETRY_COUNT", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "groq", cfg.LLM.Provider)
	assert.Equal(t, "gk", cfg.LLM.Groq.APIKey)
	assert.Equal(t, "llama3-8b", cfg.LLM.Groq.Model)
	assert.Equal(t, "http://qdrant:6333", cfg.Qdrant.URL)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, "supabase", cfg.LeadStoreKind())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLeadStoreKind(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"nothing configured", Config{}, "none"},
		{"postgres url", Config{Leads: LeadsConfig{Postgres: PostgresConfig{DatabaseURL: "postgres://x"}}}, "postgres"},
		{"supabase preferred", Config{Leads: LeadsConfig{
			Supabase: SupabaseConfig{URL: "https://x", Key: "k"},
			Postgres: PostgresConfig{DatabaseURL: "postgres://x"},
		}}, "supabase"},
		{"supabase without key", Config{Leads: LeadsConfig{Supabase: SupabaseConfig{URL: "https://x"}}}, "none"},
		{"explicit", Config{Leads: LeadsConfig{Store: "Postgres"}}, "postgres"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.LeadStoreKind())
		})
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
