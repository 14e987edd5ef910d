package driven

import (
	"context"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
)

// ModelClient sends one conversation turn to a chat model with tool support
type ModelClient interface {
	// CreateMessage runs a single model call. Tools in the request may be nil,
	// in which case the model can only answer with text.
	CreateMessage(ctx context.Context, req *domain.ModelRequest) (*domain.ModelResponse, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the model service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the client
	Close() error
}
