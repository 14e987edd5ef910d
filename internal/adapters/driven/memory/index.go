// Package memory provides in-process adapters for the semantic index and
// conversation history. They back the default single-node deployment and
// the end-to-end tests.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.SemanticIndex = (*Index)(nil)
	_ driven.CourseLoader  = (*Index)(nil)
)

type record struct {
	id        string
	document  string
	metadata  map[string]any
	embedding []float32
	seq       int
}

// Index is an in-memory SemanticIndex ranking records by cosine distance
type Index struct {
	mu          sync.RWMutex
	embedder    driven.EmbeddingService
	collections map[domain.Collection]map[string]*record
	seq         int
}

// NewIndex creates an empty index embedding text with the given service
func NewIndex(embedder driven.EmbeddingService) *Index {
	return &Index{
		embedder: embedder,
		collections: map[domain.Collection]map[string]*record{
			domain.CollectionCatalog: {},
			domain.CollectionContent: {},
		},
	}
}

// AddCourse upserts a catalog record. The course title is both the ID and
// the embedded document, so partial names resolve against it.
func (x *Index) AddCourse(ctx context.Context, course *domain.Course) error {
	if course == nil || course.Title == "" {
		return fmt.Errorf("%w: course title is required", domain.ErrInvalidInput)
	}
	meta, err := course.CatalogMetadata()
	if err != nil {
		return err
	}
	vectors, err := x.embedder.Embed(ctx, []string{course.Title})
	if err != nil {
		return fmt.Errorf("failed to embed course %q: %w", course.Title, err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.put(domain.CollectionCatalog, course.Title, course.Title, meta, vectors[0])
	return nil
}

// AddChunks upserts content chunks keyed by their stable chunk ID
func (x *Index) AddChunks(ctx context.Context, chunks []domain.ContentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	vectors, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(chunks))
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	for i := range chunks {
		x.put(domain.CollectionContent, chunks[i].ID(), chunks[i].Text, chunks[i].Metadata(), vectors[i])
	}
	return nil
}

// put must be called with the write lock held. Re-inserting an ID keeps its
// original insertion order.
func (x *Index) put(collection domain.Collection, id, document string, meta map[string]any, embedding []float32) {
	records := x.collections[collection]
	if existing, ok := records[id]; ok {
		existing.document = document
		existing.metadata = meta
		existing.embedding = embedding
		return
	}
	x.seq++
	records[id] = &record{id: id, document: document, metadata: meta, embedding: embedding, seq: x.seq}
}

// Query ranks the filtered collection by cosine distance to the query text.
// Ties keep insertion order.
func (x *Index) Query(ctx context.Context, collection domain.Collection, text string, topK int, filter domain.RetrievalFilter) ([]domain.SimilarityMatch, error) {
	records, ok := x.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: unknown collection %q", domain.ErrInvalidInput, collection)
	}
	if topK <= 0 {
		return []domain.SimilarityMatch{}, nil
	}

	query, err := x.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	type scored struct {
		rec      *record
		distance float64
	}

	x.mu.RLock()
	candidates := make([]scored, 0, len(records))
	for _, rec := range records {
		if !filter.Matches(rec.metadata) {
			continue
		}
		candidates = append(candidates, scored{rec: rec, distance: 1 - cosineSimilarity(query, rec.embedding)})
	}
	x.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].rec.seq < candidates[j].rec.seq
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	matches := make([]domain.SimilarityMatch, len(candidates))
	for i, c := range candidates {
		matches[i] = domain.SimilarityMatch{
			ID:       c.rec.id,
			Document: c.rec.document,
			Metadata: copyMetadata(c.rec.metadata),
			Distance: c.distance,
		}
	}
	return matches, nil
}

// Get returns records by ID in request order, or every record in insertion
// order when no IDs are given
func (x *Index) Get(ctx context.Context, collection domain.Collection, ids ...string) ([]domain.IndexRecord, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	records, ok := x.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: unknown collection %q", domain.ErrInvalidInput, collection)
	}

	var selected []*record
	if len(ids) == 0 {
		for _, rec := range records {
			selected = append(selected, rec)
		}
		sort.Slice(selected, func(i, j int) bool { return selected[i].seq < selected[j].seq })
	} else {
		for _, id := range ids {
			if rec, ok := records[id]; ok {
				selected = append(selected, rec)
			}
		}
	}

	out := make([]domain.IndexRecord, len(selected))
	for i, rec := range selected {
		out[i] = domain.IndexRecord{ID: rec.id, Document: rec.document, Metadata: copyMetadata(rec.metadata)}
	}
	return out, nil
}

// HealthCheck always succeeds for the in-memory index
func (x *Index) HealthCheck(ctx context.Context) error {
	return nil
}

// Count returns the number of records in a collection
func (x *Index) Count(collection domain.Collection) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.collections[collection])
}

func copyMetadata(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

// cosineSimilarity returns 0 for mismatched or zero-length vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
