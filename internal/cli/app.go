package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-courses/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-courses/internal/adapters/driven/corpus"
	"github.com/custodia-labs/sercha-courses/internal/adapters/driven/memory"
	"github.com/custodia-labs/sercha-courses/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/sercha-courses/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-courses/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-courses/internal/config"
	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-courses/internal/core/services"
	"github.com/custodia-labs/sercha-courses/internal/runtime"
	"github.com/custodia-labs/sercha-courses/internal/tools"
)

// courseIndex is what every index backend provides
type courseIndex interface {
	driven.SemanticIndex
	driven.CourseLoader
}

// app is the wired object graph shared by all commands
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	runtime  *runtime.Services
	index    courseIndex
	history  driven.HistoryStore
	lock     driven.DistributedLock
	registry *tools.Registry

	query   driving.QueryService
	courses driving.CourseService
	ingest  driving.IngestService

	closers []func() error
}

// newApp connects the configured backends and wires the services.
// AI providers that fail their health check are logged and left unset so
// the process still starts; /ready reports them as missing.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		runtime: runtime.NewServices(domain.NewRuntimeConfig(cfg.IndexBackend, cfg.HistoryBackend)),
	}
	a.closers = append(a.closers, a.runtime.Close)

	if err := a.setupAI(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.setupStores(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.setupServices(); err != nil {
		a.Close()
		return nil, err
	}

	rc := a.runtime.Config()
	logger.Info("runtime config",
		"index_backend", rc.IndexBackend,
		"history_backend", rc.HistoryBackend,
		"embedding", rc.EmbeddingAvailable(),
		"model", rc.ModelAvailable(),
	)
	return a, nil
}

func (a *app) setupAI(ctx context.Context) error {
	factory := ai.NewFactory()

	embedding, err := factory.CreateEmbeddingService(&a.cfg.Embedding)
	if err != nil {
		return fmt.Errorf("failed to create embedding service: %w", err)
	}
	if embedding == nil {
		a.logger.Warn("no embedding provider configured, retrieval is unavailable")
	} else if err := a.runtime.ValidateAndSetEmbedding(ctx, embedding); err != nil {
		a.logger.Warn("embedding health check failed", "provider", a.cfg.Embedding.Provider, "error", err)
	}

	model, err := factory.CreateModelClient(&a.cfg.Model)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}
	if model == nil {
		a.logger.Warn("no llm provider configured, questions cannot be answered")
	} else if err := a.runtime.ValidateAndSetModel(ctx, model); err != nil {
		a.logger.Warn("model health check failed", "provider", a.cfg.Model.Provider, "error", err)
	}
	return nil
}

func (a *app) setupStores(ctx context.Context) error {
	var db *postgres.DB
	if a.cfg.DatabaseURL != "" {
		a.logger.Info("connecting to postgres")
		var err error
		db, err = postgres.Connect(ctx, postgres.Config{
			URL:             a.cfg.DatabaseURL,
			MaxOpenConns:    a.cfg.MaxOpenConns,
			MaxIdleConns:    a.cfg.MaxIdleConns,
			ConnMaxLifetime: a.cfg.ConnMaxLifetime,
			ConnMaxIdleTime: a.cfg.ConnMaxIdleTime,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		if err := db.InitSchema(ctx, a.runtime.Embedder().Dimensions()); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		a.logger.Info("postgres connected and schema initialized")
	}

	var redisClient *redis.Client
	if a.cfg.RedisURL != "" {
		a.logger.Info("connecting to redis")
		opts, err := redis.ParseURL(a.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		a.closers = append(a.closers, redisClient.Close)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.logger.Info("redis connected")
	}

	switch a.cfg.IndexBackend {
	case config.BackendPostgres:
		a.index = postgres.NewCourseIndex(db, a.runtime.Embedder())
	default:
		a.index = memory.NewIndex(a.runtime.Embedder())
	}

	switch a.cfg.HistoryBackend {
	case config.BackendRedis:
		a.history = redisadapter.NewHistoryStore(redisClient, a.cfg.HistoryTTL)
	case config.BackendPostgres:
		a.history = postgres.NewHistoryStore(db, a.cfg.HistoryTTL)
	default:
		a.history = memory.NewHistoryStore(a.cfg.HistoryTTL)
	}

	// Ingest lock: Redis if available, otherwise PostgreSQL advisory locks.
	// A memory-only process has no peers to coordinate with.
	switch {
	case redisClient != nil:
		a.lock = redisadapter.NewReplicaLock(redisClient)
		a.logger.Info("using redis ingest lock")
	case db != nil:
		a.lock = postgres.NewAdvisoryLock(db)
		a.logger.Info("using postgres ingest lock")
	}
	return nil
}

func (a *app) setupServices() error {
	search, err := tools.NewCourseSearchTool(tools.CourseSearchConfig{
		Index:      a.index,
		MaxResults: a.cfg.MaxResults,
		Logger:     a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create course search tool: %w", err)
	}
	a.registry = tools.NewRegistry()
	a.registry.Register(search)

	generator := services.NewGenerator(services.GeneratorConfig{
		Services:      a.runtime,
		MaxToolRounds: a.cfg.MaxToolRounds,
		MaxTokens:     a.cfg.MaxTokens,
		Temperature:   a.cfg.Temperature,
		Logger:        a.logger,
	})

	a.query = services.NewQueryService(services.QueryServiceConfig{
		Generator:  generator,
		Registry:   a.registry,
		History:    a.history,
		MaxHistory: a.cfg.MaxHistory,
		Logger:     a.logger,
	})
	a.courses = services.NewCourseService(a.index)
	a.ingest = services.NewIngestService(services.IngestConfig{
		Loader:  a.index,
		Lock:    a.lock,
		LockTTL: a.cfg.IngestLockTTL,
		Logger:  a.logger,
	})
	return nil
}

// ingestFile loads a corpus file into the index
func (a *app) ingestFile(ctx context.Context, path string) (*domain.IngestResult, error) {
	c, err := corpus.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return a.ingest.Ingest(ctx, c)
}

// seed loads the configured corpus file when the index would otherwise
// start empty or when always is set
func (a *app) seed(ctx context.Context, always bool) error {
	if a.cfg.CorpusFile == "" {
		return nil
	}
	if !always && a.cfg.IndexBackend != config.BackendMemory {
		return nil
	}
	result, err := a.ingestFile(ctx, a.cfg.CorpusFile)
	if err != nil {
		return fmt.Errorf("failed to load corpus %s: %w", a.cfg.CorpusFile, err)
	}
	if result.Skipped {
		a.logger.Info("corpus load skipped, another instance holds the ingest lock")
	}
	return nil
}

// healthChecks are the dependencies /ready checks
func (a *app) healthChecks() map[string]http.HealthChecker {
	return map[string]http.HealthChecker{
		"index":   a.index,
		"history": a.history,
	}
}

// Close releases every connection in reverse order of creation
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
