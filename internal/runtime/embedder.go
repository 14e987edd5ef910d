package runtime

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*currentEmbedder)(nil)

// currentEmbedder forwards to whichever embedding service is current, so
// index adapters built at startup pick up a service configured later.
type currentEmbedder struct {
	services *Services
}

// Embedder returns an EmbeddingService bound to this registry. Calls fail
// with domain.ErrServiceUnavailable while no embedding service is set.
func (s *Services) Embedder() driven.EmbeddingService {
	return &currentEmbedder{services: s}
}

func (e *currentEmbedder) current() (driven.EmbeddingService, error) {
	svc := e.services.EmbeddingService()
	if svc == nil {
		return nil, fmt.Errorf("%w: no embedding service configured", domain.ErrServiceUnavailable)
	}
	return svc, nil
}

func (e *currentEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	svc, err := e.current()
	if err != nil {
		return nil, err
	}
	return svc.Embed(ctx, texts)
}

func (e *currentEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	svc, err := e.current()
	if err != nil {
		return nil, err
	}
	return svc.EmbedQuery(ctx, query)
}

func (e *currentEmbedder) Dimensions() int {
	if svc := e.services.EmbeddingService(); svc != nil {
		return svc.Dimensions()
	}
	return 0
}

func (e *currentEmbedder) Model() string {
	if svc := e.services.EmbeddingService(); svc != nil {
		return svc.Model()
	}
	return ""
}

func (e *currentEmbedder) HealthCheck(ctx context.Context) error {
	svc, err := e.current()
	if err != nil {
		return err
	}
	return svc.HealthCheck(ctx)
}

// Close is a no-op; the registry owns the underlying service
func (e *currentEmbedder) Close() error {
	return nil
}
