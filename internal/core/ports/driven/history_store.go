package driven

import (
	"context"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
)

// HistoryStore persists the recent exchanges of a conversation session
type HistoryStore interface {
	// Get returns the stored exchanges for a session, oldest first.
	// Returns domain.ErrSessionNotFound if the session has no history.
	Get(ctx context.Context, sessionID string) ([]domain.Exchange, error)

	// Append records an exchange and keeps only the newest maxExchanges
	Append(ctx context.Context, sessionID string, exchange domain.Exchange, maxExchanges int) error

	// Delete removes the session history
	Delete(ctx context.Context, sessionID string) error

	// HealthCheck verifies the store is reachable
	HealthCheck(ctx context.Context) error
}
