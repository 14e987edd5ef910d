package driven

import (
	"context"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
)

// Tool is a named capability the model may invoke
type Tool interface {
	// Definition returns the schema advertised to the model
	Definition() domain.ToolDefinition

	// Execute runs the tool. Recoverable conditions (nothing found, index
	// failures) are reported in the output text; a returned error means the
	// call itself failed.
	Execute(ctx context.Context, input map[string]any) (*domain.ToolOutput, error)
}

// ToolRegistry dispatches tool calls by name and remembers the last sources
// produced by each tool
type ToolRegistry interface {
	// Definitions returns every tool schema in registration order
	Definitions() []domain.ToolDefinition

	// Dispatch invokes the named tool. An unknown name is not an error: the
	// output text says the tool was not found.
	Dispatch(ctx context.Context, name string, input map[string]any) (*domain.ToolOutput, error)

	// CollectSources returns the last sources of every tool in registration order
	CollectSources() []domain.Source

	// ClearSources forgets all remembered sources
	ClearSources()
}
