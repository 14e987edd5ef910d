package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.HistoryStore = (*HistoryStore)(nil)

const historyPrefix = keyspace + ":history:"

// DefaultHistoryTTL is how long an idle session's history is kept
const DefaultHistoryTTL = 24 * time.Hour

// HistoryStore implements driven.HistoryStore using a Redis list per session.
// Every append refreshes the key TTL, so idle sessions expire on their own.
type HistoryStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewHistoryStore creates a new Redis-backed HistoryStore
func NewHistoryStore(client *redis.Client, ttl time.Duration) *HistoryStore {
	if ttl <= 0 {
		ttl = DefaultHistoryTTL
	}
	return &HistoryStore{client: client, ttl: ttl}
}

// Get returns the stored exchanges, oldest first
func (s *HistoryStore) Get(ctx context.Context, sessionID string) ([]domain.Exchange, error) {
	items, err := s.client.LRange(ctx, historyPrefix+sessionID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	if len(items) == 0 {
		return nil, domain.ErrSessionNotFound
	}

	exchanges := make([]domain.Exchange, 0, len(items))
	for _, item := range items {
		var e domain.Exchange
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal exchange: %w", err)
		}
		exchanges = append(exchanges, e)
	}
	return exchanges, nil
}

// Append pushes the exchange, trims the list and refreshes the TTL in one pipeline
func (s *HistoryStore) Append(ctx context.Context, sessionID string, exchange domain.Exchange, maxExchanges int) error {
	if exchange.CreatedAt == 0 {
		exchange.CreatedAt = time.Now().Unix()
	}
	data, err := json.Marshal(exchange)
	if err != nil {
		return fmt.Errorf("failed to marshal exchange: %w", err)
	}

	key := historyPrefix + sessionID
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if maxExchanges > 0 {
		pipe.LTrim(ctx, key, int64(-maxExchanges), -1)
	}
	pipe.Expire(ctx, key, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// Delete removes the session history
func (s *HistoryStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, historyPrefix+sessionID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}

// HealthCheck pings Redis
func (s *HistoryStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
