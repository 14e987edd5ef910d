package driving

import (
	"context"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
)

// GenerateRequest is one exchange handed to the generator
type GenerateRequest struct {
	Query    string
	History  string // pre-formatted, empty when there is none
	Tools    []domain.ToolDefinition
	Registry driven.ToolRegistry
}

// ResponseGenerator answers a query, letting the model call tools for a bounded number of rounds
type ResponseGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (*domain.Generation, error)
}
