package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
)

var envKeys = []string{
	"HOST", "PORT", "CORS_ORIGINS", "LOG_LEVEL", "LOG_FORMAT",
	"DATABASE_URL", "REDIS_URL", "INDEX_BACKEND", "HISTORY_BACKEND", "HISTORY_TTL", "CORPUS_FILE",
	"LLM_PROVIDER", "LLM_MODEL", "LLM_API_KEY", "LLM_BASE_URL",
	"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_API_KEY", "EMBEDDING_BASE_URL",
	"MAX_RESULTS", "MAX_HISTORY", "MAX_TOOL_ROUNDS", "MAX_TOKENS", "TEMPERATURE",
}

// clearEnv blanks every variable Load reads; viper ignores empty values
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, BackendMemory, cfg.IndexBackend)
	assert.Equal(t, BackendMemory, cfg.HistoryBackend)
	assert.Equal(t, 24*time.Hour, cfg.HistoryTTL)
	assert.Equal(t, 5, cfg.MaxResults)
	assert.Equal(t, 2, cfg.MaxHistory)
	assert.Equal(t, 2, cfg.MaxToolRounds)
	assert.Equal(t, 800, cfg.MaxTokens)
	assert.Zero(t, cfg.Temperature)
	assert.False(t, cfg.Model.IsConfigured())
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_PROVIDER", "Anthropic")
	t.Setenv("LLM_API_KEY", "sk-ant")
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	t.Setenv("EMBEDDING_MODEL", "all-minilm")
	t.Setenv("MAX_TOOL_ROUNDS", "3")
	t.Setenv("TEMPERATURE", "0.5")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://courses.example.com")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, domain.AIProviderAnthropic, cfg.Model.Provider)
	assert.Equal(t, "sk-ant", cfg.Model.APIKey)
	assert.Equal(t, domain.AIProviderOllama, cfg.Embedding.Provider)
	assert.Equal(t, "all-minilm", cfg.Embedding.Model)
	assert.Equal(t, 3, cfg.MaxToolRounds)
	assert.Equal(t, 0.5, cfg.Temperature)
	assert.Equal(t, []string{"http://localhost:3000", "https://courses.example.com"}, cfg.CORSOrigins)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
port: 8100
corpus_file: ./docs/courses.yaml
history_ttl: 2h
cors_origins:
  - https://a.example.com
llm:
  provider: openai
  api_key: sk-file
max_results: 8
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8100, cfg.Port)
	assert.Equal(t, "./docs/courses.yaml", cfg.CorpusFile)
	assert.Equal(t, 2*time.Hour, cfg.HistoryTTL)
	assert.Equal(t, []string{"https://a.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, 8, cfg.MaxResults)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")
	path := writeFile(t, "port: 8100\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_EmbeddingFollowsChatProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("LLM_API_KEY", "sk-shared")
	t.Setenv("LLM_BASE_URL", "https://proxy.example.com/v1")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, domain.AIProviderOpenAI, cfg.Embedding.Provider)
	assert.Equal(t, "sk-shared", cfg.Embedding.APIKey)
	assert.Equal(t, "https://proxy.example.com/v1", cfg.Embedding.BaseURL)
	assert.Empty(t, cfg.Embedding.Model, "model default belongs to the adapter")
}

func TestLoad_NoEmbeddingForAnthropic(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("LLM_API_KEY", "sk-ant")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Embedding.Provider)
}

func TestDeriveBackends(t *testing.T) {
	tests := []struct {
		name        string
		databaseURL string
		redisURL    string
		wantIndex   string
		wantHistory string
	}{
		{"nothing", "", "", BackendMemory, BackendMemory},
		{"postgres only", "postgres://db", "", BackendPostgres, BackendPostgres},
		{"redis only", "", "redis://cache", BackendMemory, BackendRedis},
		{"both", "postgres://db", "redis://cache", BackendPostgres, BackendRedis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{DatabaseURL: tt.databaseURL, RedisURL: tt.redisURL}
			cfg.deriveBackends()
			assert.Equal(t, tt.wantIndex, cfg.IndexBackend)
			assert.Equal(t, tt.wantHistory, cfg.HistoryBackend)
		})
	}
}

func TestDeriveBackends_ExplicitWins(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://db", IndexBackend: BackendMemory, HistoryBackend: BackendMemory}
	cfg.deriveBackends()
	assert.Equal(t, BackendMemory, cfg.IndexBackend)
	assert.Equal(t, BackendMemory, cfg.HistoryBackend)
}

func validConfig() *Config {
	return &Config{
		Port:           8000,
		IndexBackend:   BackendMemory,
		HistoryBackend: BackendMemory,
		HistoryTTL:     time.Hour,
		MaxResults:     5,
		MaxHistory:     2,
		MaxToolRounds:  2,
		MaxTokens:      800,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Port = 0 }},
		{"port too large", func(c *Config) { c.Port = 70000 }},
		{"unknown index backend", func(c *Config) { c.IndexBackend = "chroma" }},
		{"postgres index without url", func(c *Config) { c.IndexBackend = BackendPostgres }},
		{"redis history without url", func(c *Config) { c.HistoryBackend = BackendRedis }},
		{"postgres history without url", func(c *Config) { c.HistoryBackend = BackendPostgres }},
		{"unknown history backend", func(c *Config) { c.HistoryBackend = "etcd" }},
		{"unknown llm provider", func(c *Config) { c.Model.Provider = "cohere" }},
		{"anthropic embeddings", func(c *Config) { c.Embedding.Provider = domain.AIProviderAnthropic }},
		{"zero max results", func(c *Config) { c.MaxResults = 0 }},
		{"negative history", func(c *Config) { c.MaxHistory = -1 }},
		{"zero tool rounds", func(c *Config) { c.MaxToolRounds = 0 }},
		{"zero max tokens", func(c *Config) { c.MaxTokens = 0 }},
		{"hot temperature", func(c *Config) { c.Temperature = 3 }},
		{"zero ttl", func(c *Config) { c.HistoryTTL = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
	}

	require.NoError(t, validConfig().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		})
	}
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("INDEX_BACKEND", "postgres")

	_, err := Load("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a, b", " c ", ""}))
	assert.Nil(t, splitList(nil))
}
