package runtime

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
)

// Services holds references to dynamically configurable services.
// AI services (embedding, chat model) can be swapped at runtime, e.g. after
// a provider health check succeeds late.
// Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	// Config tracks capability flags
	config *domain.RuntimeConfig

	// Dynamic services (can be nil, updated at runtime)
	embeddingService driven.EmbeddingService
	modelClient      driven.ModelClient
}

// NewServices creates a new Services registry
func NewServices(config *domain.RuntimeConfig) *Services {
	return &Services{
		config: config,
	}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// EmbeddingService returns the current embedding service (may be nil)
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingService
}

// ModelClient returns the current chat model client (may be nil)
func (s *Services) ModelClient() driven.ModelClient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modelClient
}

// SetEmbeddingService updates the embedding service.
// Closes the old service if present. Updates config flags.
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Close old service
	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
	}

	s.embeddingService = svc
	s.config.SetEmbeddingAvailable(svc != nil)
}

// SetModelClient updates the chat model client.
// Closes the old client if present. Updates config flags.
func (s *Services) SetModelClient(client driven.ModelClient) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.modelClient != nil {
		_ = s.modelClient.Close()
	}

	s.modelClient = client
	s.config.SetModelAvailable(client != nil)
}

// Close shuts down all services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
		s.embeddingService = nil
	}
	if s.modelClient != nil {
		_ = s.modelClient.Close()
		s.modelClient = nil
	}

	s.config.SetEmbeddingAvailable(false)
	s.config.SetModelAvailable(false)

	return nil
}

// ValidateAndSetEmbedding validates connectivity before setting embedding service
func (s *Services) ValidateAndSetEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if svc == nil {
		s.SetEmbeddingService(nil)
		return nil
	}

	// Validate connectivity
	if err := svc.HealthCheck(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetEmbeddingService(svc)
	return nil
}

// ValidateAndSetModel pings the model before making it current
func (s *Services) ValidateAndSetModel(ctx context.Context, client driven.ModelClient) error {
	if client == nil {
		s.SetModelClient(nil)
		return nil
	}

	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return err
	}

	s.SetModelClient(client)
	return nil
}
