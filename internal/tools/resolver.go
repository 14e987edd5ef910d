package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
)

// CourseResolver maps a partial or fuzzy course name to the canonical title
// of the nearest catalog entry.
//
// There is no distance cutoff: as long as the catalog is non-empty every
// name resolves to something, however unrelated.
type CourseResolver struct {
	index driven.SemanticIndex
}

// NewCourseResolver creates a resolver over the catalog collection of index.
func NewCourseResolver(index driven.SemanticIndex) *CourseResolver {
	return &CourseResolver{index: index}
}

// Resolve returns the canonical course title closest to name.
// Returns domain.ErrInvalidInput for an empty name and domain.ErrCourseNotFound
// when the catalog is empty. Index failures are wrapped and returned.
func (r *CourseResolver) Resolve(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: course name is empty", domain.ErrInvalidInput)
	}

	matches, err := r.index.Query(ctx, domain.CollectionCatalog, name, 1, domain.BuildFilter(nil, nil))
	if err != nil {
		return "", fmt.Errorf("failed to query course catalog: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrCourseNotFound, name)
	}

	best := matches[0]
	if title, ok := domain.MetadataString(best.Metadata, domain.MetaTitle); ok && title != "" {
		return title, nil
	}
	return best.ID, nil
}
