package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ToolRegistry = (*Registry)(nil)

// Registry implements ToolRegistry. Tools are keyed by name and kept in
// registration order; each tool's most recent non-empty sources are
// remembered until ClearSources.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	tools   map[string]driven.Tool
	sources map[string][]domain.Source
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]driven.Tool),
		sources: make(map[string][]domain.Source),
	}
}

// Register adds a tool under its definition name.
// Registering the same name again replaces the tool but keeps its position.
func (r *Registry) Register(tool driven.Tool) {
	name := tool.Definition().Name

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

// Definitions returns the schemas of all registered tools in registration order.
func (r *Registry) Definitions() []domain.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]domain.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Dispatch runs the named tool. Unknown names produce a "not found" output
// rather than an error. Tool errors are returned unchanged.
func (r *Registry) Dispatch(ctx context.Context, name string, input map[string]any) (*domain.ToolOutput, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return &domain.ToolOutput{Content: fmt.Sprintf("Tool '%s' not found", name)}, nil
	}

	out, err := tool.Execute(ctx, input)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return &domain.ToolOutput{}, nil
	}

	if len(out.Sources) > 0 {
		r.mu.Lock()
		r.sources[name] = append([]domain.Source(nil), out.Sources...)
		r.mu.Unlock()
	}
	return out, nil
}

// CollectSources returns every tool's last sources, concatenated in registration order.
func (r *Registry) CollectSources() []domain.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []domain.Source
	for _, name := range r.order {
		all = append(all, r.sources[name]...)
	}
	return all
}

// ClearSources forgets the remembered sources of every tool.
func (r *Registry) ClearSources() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sources = make(map[string][]domain.Source)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
