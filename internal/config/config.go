// Package config loads server and CLI settings from an optional YAML file,
// environment variables and built-in defaults, in increasing precedence
// order: defaults < file < environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
)

// Backend names accepted for the index and history stores
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// DefaultConfigName is the file looked up in the working directory when no
// explicit path is given
const DefaultConfigName = "sercha-courses"

// Config is the fully resolved application configuration
type Config struct {
	Host        string
	Port        int
	CORSOrigins []string
	LogLevel    string
	LogFormat   string

	DatabaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	RedisURL string

	IndexBackend   string
	HistoryBackend string
	HistoryTTL     time.Duration
	CorpusFile     string
	IngestLockTTL  time.Duration

	Model     domain.ModelSettings
	Embedding domain.EmbeddingSettings

	MaxResults    int
	MaxHistory    int
	MaxToolRounds int
	MaxTokens     int
	Temperature   float64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8000)
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetDefault("database_url", "")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("db.conn_max_idle_time", time.Minute)

	v.SetDefault("redis_url", "")

	v.SetDefault("index_backend", "")
	v.SetDefault("history_backend", "")
	v.SetDefault("history_ttl", 24*time.Hour)
	v.SetDefault("corpus_file", "")
	v.SetDefault("ingest_lock_ttl", 10*time.Minute)

	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("embedding.provider", "")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")

	v.SetDefault("max_results", domain.DefaultMaxResults)
	v.SetDefault("max_history", domain.DefaultMaxHistory)
	v.SetDefault("max_tool_rounds", domain.DefaultMaxToolRounds)
	v.SetDefault("max_tokens", domain.DefaultMaxTokens)
	v.SetDefault("temperature", 0.0)
}

// Load resolves the configuration. An empty path looks for
// sercha-courses.yaml in the working directory and tolerates its absence;
// an explicit path must exist.
//
// Nested keys map to environment variables with dots replaced by
// underscores, so llm.api_key is read from LLM_API_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Host:        v.GetString("host"),
		Port:        v.GetInt("port"),
		CORSOrigins: splitList(v.GetStringSlice("cors_origins")),
		LogLevel:    v.GetString("log_level"),
		LogFormat:   v.GetString("log_format"),

		DatabaseURL:     v.GetString("database_url"),
		MaxOpenConns:    v.GetInt("db.max_open_conns"),
		MaxIdleConns:    v.GetInt("db.max_idle_conns"),
		ConnMaxLifetime: v.GetDuration("db.conn_max_lifetime"),
		ConnMaxIdleTime: v.GetDuration("db.conn_max_idle_time"),

		RedisURL: v.GetString("redis_url"),

		IndexBackend:   strings.ToLower(v.GetString("index_backend")),
		HistoryBackend: strings.ToLower(v.GetString("history_backend")),
		HistoryTTL:     v.GetDuration("history_ttl"),
		CorpusFile:     v.GetString("corpus_file"),
		IngestLockTTL:  v.GetDuration("ingest_lock_ttl"),

		Model: domain.ModelSettings{
			Provider: domain.AIProvider(strings.ToLower(v.GetString("llm.provider"))),
			Model:    v.GetString("llm.model"),
			APIKey:   v.GetString("llm.api_key"),
			BaseURL:  v.GetString("llm.base_url"),
		},
		Embedding: domain.EmbeddingSettings{
			Provider: domain.AIProvider(strings.ToLower(v.GetString("embedding.provider"))),
			Model:    v.GetString("embedding.model"),
			APIKey:   v.GetString("embedding.api_key"),
			BaseURL:  v.GetString("embedding.base_url"),
		},

		MaxResults:    v.GetInt("max_results"),
		MaxHistory:    v.GetInt("max_history"),
		MaxToolRounds: v.GetInt("max_tool_rounds"),
		MaxTokens:     v.GetInt("max_tokens"),
		Temperature:   v.GetFloat64("temperature"),
	}

	cfg.deriveBackends()
	cfg.deriveEmbedding()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// deriveBackends picks the strongest backend the configured URLs allow
// when none was named explicitly
func (c *Config) deriveBackends() {
	if c.IndexBackend == "" {
		c.IndexBackend = BackendMemory
		if c.DatabaseURL != "" {
			c.IndexBackend = BackendPostgres
		}
	}
	if c.HistoryBackend == "" {
		switch {
		case c.RedisURL != "":
			c.HistoryBackend = BackendRedis
		case c.DatabaseURL != "":
			c.HistoryBackend = BackendPostgres
		default:
			c.HistoryBackend = BackendMemory
		}
	}
}

// deriveEmbedding reuses the chat provider's credentials for embeddings when
// no embedding provider is set and the chat provider offers an embedding API
func (c *Config) deriveEmbedding() {
	if c.Embedding.Provider != "" || !c.Model.Provider.SupportsEmbeddings() {
		return
	}
	c.Embedding.Provider = c.Model.Provider
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = c.Model.APIKey
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = c.Model.BaseURL
	}
}

// Validate checks the resolved configuration for values the server cannot run with
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return invalid("port must be between 1 and 65535, got %d", c.Port)
	}

	switch c.IndexBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return invalid("index backend postgres requires DATABASE_URL")
		}
	default:
		return invalid("unknown index backend %q", c.IndexBackend)
	}

	switch c.HistoryBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return invalid("history backend postgres requires DATABASE_URL")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return invalid("history backend redis requires REDIS_URL")
		}
	default:
		return invalid("unknown history backend %q", c.HistoryBackend)
	}

	if c.Model.Provider != "" && !c.Model.Provider.IsValid() {
		return invalid("unknown llm provider %q", c.Model.Provider)
	}
	if c.Embedding.Provider != "" && !c.Embedding.Provider.SupportsEmbeddings() {
		return invalid("provider %q has no embedding API", c.Embedding.Provider)
	}

	if c.MaxResults < 1 {
		return invalid("max_results must be positive")
	}
	if c.MaxHistory < 0 {
		return invalid("max_history must not be negative")
	}
	if c.MaxToolRounds < 1 {
		return invalid("max_tool_rounds must be positive")
	}
	if c.MaxTokens < 1 {
		return invalid("max_tokens must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return invalid("temperature must be between 0 and 2, got %g", c.Temperature)
	}
	if c.HistoryTTL <= 0 {
		return invalid("history_ttl must be positive")
	}

	if _, err := c.level(); err != nil {
		return invalid("log_level: %v", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return invalid("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// Addr returns the listen address of the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := c.level()
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (c *Config) level() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}

// splitList accepts both YAML lists and comma separated environment values
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: invalid configuration: %s", domain.ErrInvalidInput, fmt.Sprintf(format, args...))
}
