package domain

import "sync"

// RuntimeConfig tracks which services are available at runtime.
// Backends are fixed at startup; AI capability flags change when services are swapped.
// Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	IndexBackend   string // "postgres" or "memory"
	HistoryBackend string // "redis", "postgres" or "memory"

	// Dynamic capability flags
	embeddingAvailable bool
	modelAvailable     bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(indexBackend, historyBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		IndexBackend:   indexBackend,
		HistoryBackend: historyBackend,
	}
}

// EmbeddingAvailable returns whether the embedding service is available
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// ModelAvailable returns whether the chat model is available
func (c *RuntimeConfig) ModelAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.modelAvailable
}

// SetEmbeddingAvailable updates the embedding availability flag
func (c *RuntimeConfig) SetEmbeddingAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
}

// SetModelAvailable updates the model availability flag
func (c *RuntimeConfig) SetModelAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modelAvailable = available
}

// CanAnswer returns true if questions can be answered (model and retrieval both up)
func (c *RuntimeConfig) CanAnswer() bool {
	return c.ModelAvailable() && c.EmbeddingAvailable()
}
