package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
)

var _ driven.HistoryStore = (*HistoryStore)(nil)

type session struct {
	exchanges []domain.Exchange
	touched   time.Time
}

// HistoryStore keeps conversation history in process memory.
// Sessions idle for longer than the TTL are dropped on access.
type HistoryStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
}

// NewHistoryStore creates a store. A zero TTL keeps sessions forever.
func NewHistoryStore(ttl time.Duration) *HistoryStore {
	return &HistoryStore{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *HistoryStore) Get(ctx context.Context, sessionID string) ([]domain.Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.live(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return append([]domain.Exchange(nil), sess.exchanges...), nil
}

func (s *HistoryStore) Append(ctx context.Context, sessionID string, exchange domain.Exchange, maxExchanges int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.live(sessionID)
	if !ok {
		sess = &session{}
		s.sessions[sessionID] = sess
	}
	if exchange.CreatedAt == 0 {
		exchange.CreatedAt = s.now().Unix()
	}
	sess.exchanges = append(sess.exchanges, exchange)
	if maxExchanges > 0 && len(sess.exchanges) > maxExchanges {
		sess.exchanges = append([]domain.Exchange(nil), sess.exchanges[len(sess.exchanges)-maxExchanges:]...)
	}
	sess.touched = s.now()
	return nil
}

func (s *HistoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *HistoryStore) HealthCheck(ctx context.Context) error {
	return nil
}

// live returns the session if it exists and has not expired.
// Must be called with the lock held.
func (s *HistoryStore) live(sessionID string) (*session, bool) {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	if s.ttl > 0 && s.now().Sub(sess.touched) > s.ttl {
		delete(s.sessions, sessionID)
		return nil, false
	}
	return sess, true
}
