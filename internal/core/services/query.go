package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driving"
)

// Ensure queryService implements QueryService
var _ driving.QueryService = (*queryService)(nil)

// QueryPromptPrefix is prepended to every user question before generation
const QueryPromptPrefix = "Answer this question about course materials: "

// QueryServiceConfig holds configuration for the query service
type QueryServiceConfig struct {
	Generator  driving.ResponseGenerator
	Registry   driven.ToolRegistry
	History    driven.HistoryStore // optional; nil disables conversation memory
	MaxHistory int
	Logger     *slog.Logger
}

// queryService implements the QueryService interface
type queryService struct {
	generator  driving.ResponseGenerator
	registry   driven.ToolRegistry
	history    driven.HistoryStore
	maxHistory int
	logger     *slog.Logger
}

// NewQueryService creates a new QueryService
func NewQueryService(cfg QueryServiceConfig) driving.QueryService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = domain.DefaultMaxHistory
	}

	return &queryService{
		generator:  cfg.Generator,
		registry:   cfg.Registry,
		history:    cfg.History,
		maxHistory: cfg.MaxHistory,
		logger:     logger,
	}
}

// Query answers a question within a session, creating the session if needed
func (s *queryService) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	genReq := driving.GenerateRequest{
		Query:   QueryPromptPrefix + req.Query,
		History: s.loadHistory(ctx, sessionID),
	}
	if s.registry != nil {
		genReq.Tools = s.registry.Definitions()
		genReq.Registry = s.registry
	}

	start := time.Now()
	gen, err := s.generator.Generate(ctx, genReq)
	if s.registry != nil {
		s.registry.ClearSources()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	s.logger.Info("query answered",
		"session_id", sessionID,
		"model_calls", gen.ModelCalls,
		"sources", len(gen.Sources),
		"duration", time.Since(start),
	)

	s.saveExchange(ctx, sessionID, domain.Exchange{
		Query:     req.Query,
		Answer:    gen.Text,
		CreatedAt: time.Now().Unix(),
	})

	sources := gen.Sources
	if sources == nil {
		sources = []domain.Source{}
	}

	return &domain.QueryResult{
		Answer:    gen.Text,
		Sources:   sources,
		SessionID: sessionID,
	}, nil
}

// ClearSession forgets the history of a session
func (s *queryService) ClearSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}
	if s.history == nil {
		return nil
	}
	if err := s.history.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// loadHistory returns the formatted history of a session. History is
// best-effort: a store failure is logged and the question is answered without it.
func (s *queryService) loadHistory(ctx context.Context, sessionID string) string {
	if s.history == nil {
		return ""
	}

	exchanges, err := s.history.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			s.logger.Warn("failed to load conversation history", "session_id", sessionID, "error", err)
		}
		return ""
	}
	return domain.FormatHistory(exchanges)
}

func (s *queryService) saveExchange(ctx context.Context, sessionID string, exchange domain.Exchange) {
	if s.history == nil {
		return
	}
	if err := s.history.Append(ctx, sessionID, exchange, s.maxHistory); err != nil {
		s.logger.Warn("failed to save conversation history", "session_id", sessionID, "error", err)
	}
}
