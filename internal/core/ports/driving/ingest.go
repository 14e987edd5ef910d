package driving

import (
	"context"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
)

// IngestService loads a prepared corpus into the semantic index
type IngestService interface {
	// Ingest upserts every course and chunk. When another instance is
	// already ingesting, it returns a result with Skipped set.
	Ingest(ctx context.Context, corpus *domain.Corpus) (*domain.IngestResult, error)
}
