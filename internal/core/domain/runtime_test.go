package domain

import (
	"sync"
	"testing"
)

func TestNewRuntimeConfig(t *testing.T) {
	config := NewRuntimeConfig("postgres", "redis")

	if config == nil {
		t.Fatal("expected non-nil config")
	}
	if config.IndexBackend != "postgres" {
		t.Errorf("expected postgres, got %s", config.IndexBackend)
	}
	if config.HistoryBackend != "redis" {
		t.Errorf("expected redis, got %s", config.HistoryBackend)
	}
	if config.EmbeddingAvailable() {
		t.Error("expected embedding to be unavailable initially")
	}
	if config.ModelAvailable() {
		t.Error("expected model to be unavailable initially")
	}
}

func TestRuntimeConfig_CanAnswer(t *testing.T) {
	config := NewRuntimeConfig("memory", "memory")

	if config.CanAnswer() {
		t.Error("expected CanAnswer false with nothing available")
	}

	config.SetModelAvailable(true)
	if config.CanAnswer() {
		t.Error("expected CanAnswer false without embeddings")
	}

	config.SetEmbeddingAvailable(true)
	if !config.CanAnswer() {
		t.Error("expected CanAnswer true with model and embeddings")
	}

	config.SetModelAvailable(false)
	if config.CanAnswer() {
		t.Error("expected CanAnswer false after model removed")
	}
}

func TestRuntimeConfig_ConcurrentAccess(t *testing.T) {
	config := NewRuntimeConfig("memory", "memory")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(v bool) {
			defer wg.Done()
			config.SetEmbeddingAvailable(v)
			config.SetModelAvailable(!v)
		}(i%2 == 0)
		go func() {
			defer wg.Done()
			_ = config.CanAnswer()
		}()
	}
	wg.Wait()
}
