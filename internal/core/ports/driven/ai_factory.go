package driven

import (
	"github.com/custodia-labs/sercha-courses/internal/core/domain"
)

// AIServiceFactory creates AI services based on configuration
type AIServiceFactory interface {
	// CreateEmbeddingService creates an embedding service from settings
	// Returns nil, nil if settings are not configured
	CreateEmbeddingService(settings *domain.EmbeddingSettings) (EmbeddingService, error)

	// CreateModelClient creates a chat model client from settings
	// Returns nil, nil if settings are not configured
	CreateModelClient(settings *domain.ModelSettings) (ModelClient, error)
}
