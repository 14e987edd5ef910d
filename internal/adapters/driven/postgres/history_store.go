package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.HistoryStore = (*HistoryStore)(nil)

// HistoryStore implements driven.HistoryStore using PostgreSQL.
// Exchanges older than the TTL are pruned on write.
type HistoryStore struct {
	db  *DB
	ttl time.Duration
}

// NewHistoryStore creates a new HistoryStore. A zero TTL disables pruning.
func NewHistoryStore(db *DB, ttl time.Duration) *HistoryStore {
	return &HistoryStore{db: db, ttl: ttl}
}

// Get retrieves the exchanges of a session, oldest first
func (s *HistoryStore) Get(ctx context.Context, sessionID string) ([]domain.Exchange, error) {
	query := `
		SELECT query, answer, created_at
		FROM conversation_exchanges
		WHERE session_id = $1 AND created_at >= $2
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID, s.cutoff())
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var exchanges []domain.Exchange
	for rows.Next() {
		var e domain.Exchange
		if err := rows.Scan(&e.Query, &e.Answer, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		exchanges = append(exchanges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(exchanges) == 0 {
		return nil, domain.ErrSessionNotFound
	}
	return exchanges, nil
}

// Append stores an exchange and trims the session to maxExchanges
func (s *HistoryStore) Append(ctx context.Context, sessionID string, exchange domain.Exchange, maxExchanges int) error {
	if exchange.CreatedAt == 0 {
		exchange.CreatedAt = time.Now().Unix()
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_exchanges (session_id, query, answer, created_at)
			VALUES ($1, $2, $3, $4)
		`, sessionID, exchange.Query, exchange.Answer, exchange.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert exchange: %w", err)
		}

		if maxExchanges > 0 {
			_, err = tx.ExecContext(ctx, `
				DELETE FROM conversation_exchanges
				WHERE session_id = $1 AND id NOT IN (
					SELECT id FROM conversation_exchanges
					WHERE session_id = $1
					ORDER BY id DESC
					LIMIT $2
				)
			`, sessionID, maxExchanges)
			if err != nil {
				return fmt.Errorf("failed to trim history: %w", err)
			}
		}

		if s.ttl > 0 {
			_, err = tx.ExecContext(ctx, `DELETE FROM conversation_exchanges WHERE created_at < $1`, s.cutoff())
			if err != nil {
				return fmt.Errorf("failed to prune history: %w", err)
			}
		}
		return nil
	})
}

// Delete removes all exchanges of a session
func (s *HistoryStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversation_exchanges WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}

// HealthCheck verifies the database is reachable
func (s *HistoryStore) HealthCheck(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// cutoff is the oldest created_at still considered live
func (s *HistoryStore) cutoff() int64 {
	if s.ttl <= 0 {
		return 0
	}
	return time.Now().Add(-s.ttl).Unix()
}
