package driving

import (
	"context"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
)

// CourseService exposes catalog information
type CourseService interface {
	// Analytics returns the number of courses and their titles
	Analytics(ctx context.Context) (*domain.CourseAnalytics, error)

	// List returns every catalog course with its lessons
	List(ctx context.Context) ([]*domain.Course, error)
}
