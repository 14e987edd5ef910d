package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
)

var _ driven.HistoryStore = (*MockHistoryStore)(nil)

// MockHistoryStore is a mock implementation of HistoryStore for testing
type MockHistoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]domain.Exchange
	failNext bool
}

// NewMockHistoryStore creates a new MockHistoryStore
func NewMockHistoryStore() *MockHistoryStore {
	return &MockHistoryStore{
		sessions: make(map[string][]domain.Exchange),
	}
}

func (m *MockHistoryStore) Get(ctx context.Context, sessionID string) ([]domain.Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return nil, domain.ErrServiceUnavailable
	}
	exchanges, ok := m.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return append([]domain.Exchange(nil), exchanges...), nil
}

func (m *MockHistoryStore) Append(ctx context.Context, sessionID string, exchange domain.Exchange, maxExchanges int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return domain.ErrServiceUnavailable
	}
	exchanges := append(m.sessions[sessionID], exchange)
	if maxExchanges > 0 && len(exchanges) > maxExchanges {
		exchanges = exchanges[len(exchanges)-maxExchanges:]
	}
	m.sessions[sessionID] = exchanges
	return nil
}

func (m *MockHistoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *MockHistoryStore) HealthCheck(ctx context.Context) error {
	return nil
}

// Helper methods for testing

func (m *MockHistoryStore) SetFailNext(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = fail
}

func (m *MockHistoryStore) Sessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
