package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.SemanticIndex = (*CourseIndex)(nil)
	_ driven.CourseLoader  = (*CourseIndex)(nil)
)

// CourseIndex implements driven.SemanticIndex on PostgreSQL with pgvector.
// Both collections share the index_records table; course_title and
// lesson_number are denormalised out of the metadata so filters use the index.
type CourseIndex struct {
	db       *DB
	embedder driven.EmbeddingService
}

// NewCourseIndex creates a new CourseIndex
func NewCourseIndex(db *DB, embedder driven.EmbeddingService) *CourseIndex {
	return &CourseIndex{db: db, embedder: embedder}
}

const queryRecordsSQL = `
	SELECT id, document, metadata, embedding <=> $2 AS distance
	FROM index_records
	WHERE collection = $1
	  AND ($3::text IS NULL OR course_title = $3)
	  AND ($4::integer IS NULL OR lesson_number = $4)
	ORDER BY distance, seq
	LIMIT $5
`

// Query ranks records by cosine distance (pgvector <=>)
func (x *CourseIndex) Query(ctx context.Context, collection domain.Collection, text string, topK int, filter domain.RetrievalFilter) ([]domain.SimilarityMatch, error) {
	if topK <= 0 {
		return []domain.SimilarityMatch{}, nil
	}

	embedding, err := x.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	course, lesson := filterArgs(filter)
	rows, err := x.db.QueryContext(ctx, queryRecordsSQL,
		string(collection),
		pgvector.NewVector(embedding),
		course,
		lesson,
		topK,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	matches := []domain.SimilarityMatch{}
	for rows.Next() {
		var m domain.SimilarityMatch
		var raw []byte
		if err := rows.Scan(&m.ID, &m.Document, &raw, &m.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		if m.Metadata, err = decodeMetadata(raw); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read matches: %w", err)
	}
	return matches, nil
}

// Get fetches records by ID in request order, or all records when no IDs are given
func (x *CourseIndex) Get(ctx context.Context, collection domain.Collection, ids ...string) ([]domain.IndexRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if len(ids) == 0 {
		rows, err = x.db.QueryContext(ctx, `
			SELECT id, document, metadata FROM index_records
			WHERE collection = $1
			ORDER BY seq
		`, string(collection))
	} else {
		rows, err = x.db.QueryContext(ctx, `
			SELECT id, document, metadata FROM index_records
			WHERE collection = $1 AND id = ANY($2)
			ORDER BY array_position($2, id)
		`, string(collection), pq.Array(ids))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s records: %w", collection, err)
	}
	defer rows.Close()

	records := []domain.IndexRecord{}
	for rows.Next() {
		var r domain.IndexRecord
		var raw []byte
		if err := rows.Scan(&r.ID, &r.Document, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if r.Metadata, err = decodeMetadata(raw); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return records, nil
}

// HealthCheck verifies the database is reachable
func (x *CourseIndex) HealthCheck(ctx context.Context) error {
	return x.db.Ping(ctx)
}

const upsertRecordSQL = `
	INSERT INTO index_records (collection, id, document, metadata, course_title, lesson_number, embedding, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	ON CONFLICT (collection, id) DO UPDATE SET
		document = EXCLUDED.document,
		metadata = EXCLUDED.metadata,
		course_title = EXCLUDED.course_title,
		lesson_number = EXCLUDED.lesson_number,
		embedding = EXCLUDED.embedding,
		updated_at = NOW()
`

// AddCourse upserts a catalog record keyed and embedded by the course title
func (x *CourseIndex) AddCourse(ctx context.Context, course *domain.Course) error {
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
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = x.db.ExecContext(ctx, upsertRecordSQL,
		string(domain.CollectionCatalog),
		course.Title,
		course.Title,
		raw,
		NullString(course.Title, true),
		sql.NullInt64{},
		pgvector.NewVector(vectors[0]),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert course %q: %w", course.Title, err)
	}
	return nil
}

// AddChunks upserts content chunks in a single transaction
func (x *CourseIndex) AddChunks(ctx context.Context, chunks []domain.ContentChunk) error {
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

	return x.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertRecordSQL)
		if err != nil {
			return fmt.Errorf("failed to prepare upsert: %w", err)
		}
		defer stmt.Close()

		for i := range chunks {
			c := &chunks[i]
			raw, err := json.Marshal(c.Metadata())
			if err != nil {
				return fmt.Errorf("failed to marshal metadata: %w", err)
			}
			var lesson sql.NullInt64
			if c.LessonNumber != nil {
				lesson = NullInt(*c.LessonNumber, true)
			}
			if _, err := stmt.ExecContext(ctx,
				string(domain.CollectionContent),
				c.ID(),
				c.Text,
				raw,
				NullString(c.CourseTitle, true),
				lesson,
				pgvector.NewVector(vectors[i]),
			); err != nil {
				return fmt.Errorf("failed to upsert chunk %s: %w", c.ID(), err)
			}
		}
		return nil
	})
}

// filterArgs maps the retrieval filter onto the nullable query parameters.
// A NULL parameter disables its predicate.
func filterArgs(filter domain.RetrievalFilter) (sql.NullString, sql.NullInt64) {
	return NullString(filter.CourseTitle()), NullInt(filter.LessonNumber())
}

func decodeMetadata(raw []byte) (map[string]any, error) {
	meta := map[string]any{}
	if len(raw) == 0 {
		return meta, nil
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return meta, nil
}
