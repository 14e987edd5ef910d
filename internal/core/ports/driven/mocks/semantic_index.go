package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.SemanticIndex = (*MockSemanticIndex)(nil)
	_ driven.CourseLoader  = (*MockSemanticIndex)(nil)
)

// IndexQuery records one call to MockSemanticIndex.Query
type IndexQuery struct {
	Collection domain.Collection
	Text       string
	TopK       int
	Filter     domain.RetrievalFilter
}

// MockSemanticIndex is an in-memory SemanticIndex for testing.
// Distance is lexical: 0 for an exact (case-insensitive) match, 0.5 when the
// document contains the query, 1 otherwise. Ties keep insertion order.
type MockSemanticIndex struct {
	mu       sync.RWMutex
	records  map[domain.Collection][]domain.IndexRecord
	queryErr map[domain.Collection]error
	getErr   error
	queries  []IndexQuery
	getCalls int
}

// NewMockSemanticIndex creates a new MockSemanticIndex
func NewMockSemanticIndex() *MockSemanticIndex {
	return &MockSemanticIndex{
		records:  make(map[domain.Collection][]domain.IndexRecord),
		queryErr: make(map[domain.Collection]error),
	}
}

func (m *MockSemanticIndex) Query(ctx context.Context, collection domain.Collection, text string, topK int, filter domain.RetrievalFilter) ([]domain.SimilarityMatch, error) {
	m.mu.Lock()
	m.queries = append(m.queries, IndexQuery{Collection: collection, Text: text, TopK: topK, Filter: filter})
	err := m.queryErr[collection]
	records := m.records[collection]
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}

	matches := make([]domain.SimilarityMatch, 0, len(records))
	for _, r := range records {
		if !filter.Matches(r.Metadata) {
			continue
		}
		matches = append(matches, domain.SimilarityMatch{
			ID:       r.ID,
			Document: r.Document,
			Metadata: r.Metadata,
			Distance: lexicalDistance(text, r.Document),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MockSemanticIndex) Get(ctx context.Context, collection domain.Collection, ids ...string) ([]domain.IndexRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}

	if len(ids) == 0 {
		return append([]domain.IndexRecord(nil), m.records[collection]...), nil
	}

	var out []domain.IndexRecord
	for _, id := range ids {
		for _, r := range m.records[collection] {
			if r.ID == id {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

func (m *MockSemanticIndex) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockSemanticIndex) AddCourse(ctx context.Context, course *domain.Course) error {
	meta, err := course.CatalogMetadata()
	if err != nil {
		return err
	}
	m.put(domain.CollectionCatalog, domain.IndexRecord{ID: course.Title, Document: course.Title, Metadata: meta})
	return nil
}

func (m *MockSemanticIndex) AddChunks(ctx context.Context, chunks []domain.ContentChunk) error {
	for i := range chunks {
		c := chunks[i]
		m.put(domain.CollectionContent, domain.IndexRecord{ID: c.ID(), Document: c.Text, Metadata: c.Metadata()})
	}
	return nil
}

func (m *MockSemanticIndex) put(collection domain.Collection, record domain.IndexRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.records[collection] {
		if r.ID == record.ID {
			m.records[collection][i] = record
			return
		}
	}
	m.records[collection] = append(m.records[collection], record)
}

func lexicalDistance(query, document string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	d := strings.ToLower(document)
	switch {
	case q == d:
		return 0
	case q != "" && strings.Contains(d, q):
		return 0.5
	default:
		return 1
	}
}

// Helper methods for testing

func (m *MockSemanticIndex) SetQueryError(collection domain.Collection, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryErr[collection] = err
}

func (m *MockSemanticIndex) SetGetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

// Queries returns every Query call made so far
func (m *MockSemanticIndex) Queries() []IndexQuery {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]IndexQuery(nil), m.queries...)
}

// QueriesFor returns the Query calls made against one collection
func (m *MockSemanticIndex) QueriesFor(collection domain.Collection) []IndexQuery {
	var out []IndexQuery
	for _, q := range m.Queries() {
		if q.Collection == collection {
			out = append(out, q)
		}
	}
	return out
}

func (m *MockSemanticIndex) GetCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getCalls
}
