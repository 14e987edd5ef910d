package driving

import (
	"context"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
)

// QueryService answers user questions within a conversation session
type QueryService interface {
	// Query answers a question. An empty session ID starts a new session.
	Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error)

	// ClearSession forgets the history of a session
	ClearSession(ctx context.Context, sessionID string) error
}
