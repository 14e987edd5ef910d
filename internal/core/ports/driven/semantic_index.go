package driven

import (
	"context"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
)

// SemanticIndex is a nearest-neighbour store holding the course catalog and
// course content collections. Retrieval never writes to it.
type SemanticIndex interface {
	// Query returns up to topK matches for text in the collection, ordered by
	// ascending distance. The filter is applied before ranking.
	Query(ctx context.Context, collection domain.Collection, text string, topK int, filter domain.RetrievalFilter) ([]domain.SimilarityMatch, error)

	// Get fetches records by exact ID. Missing IDs are skipped.
	// With no IDs every record in the collection is returned.
	Get(ctx context.Context, collection domain.Collection, ids ...string) ([]domain.IndexRecord, error)

	// HealthCheck verifies the index is reachable
	HealthCheck(ctx context.Context) error
}

// CourseLoader writes externally prepared courses and chunks into an index.
// Implemented by the index adapters; used by seeding and the ingest command.
type CourseLoader interface {
	// AddCourse upserts a catalog record keyed by course title
	AddCourse(ctx context.Context, course *domain.Course) error

	// AddChunks upserts content chunks
	AddChunks(ctx context.Context, chunks []domain.ContentChunk) error
}
