package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
)

var _ driven.Tool = (*MockTool)(nil)

// MockTool is a scriptable Tool for testing registries and the generator
type MockTool struct {
	mu     sync.Mutex
	name   string
	output *domain.ToolOutput
	err    error
	panics bool
	inputs []map[string]any
}

// NewMockTool creates a tool that returns the given content
func NewMockTool(name, content string, sources ...domain.Source) *MockTool {
	return &MockTool{
		name:   name,
		output: &domain.ToolOutput{Content: content, Sources: sources},
	}
}

func (m *MockTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Name:        m.name,
		Description: "mock tool " + m.name,
	}
}

func (m *MockTool) Execute(ctx context.Context, input map[string]any) (*domain.ToolOutput, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, input)
	out, err, panics := m.output, m.err, m.panics
	m.mu.Unlock()

	if panics {
		panic("mock tool " + m.name + " panicked")
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Helper methods for testing

func (m *MockTool) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockTool) SetPanic(panics bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics = panics
}

func (m *MockTool) SetOutput(content string, sources ...domain.Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.output = &domain.ToolOutput{Content: content, Sources: sources}
}

// Calls returns the inputs of every Execute call
func (m *MockTool) Calls() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]map[string]any(nil), m.inputs...)
}
