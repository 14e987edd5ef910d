package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driving"
)

// Ensure courseService implements CourseService
var _ driving.CourseService = (*courseService)(nil)

// courseService implements the CourseService interface
type courseService struct {
	index driven.SemanticIndex
}

// NewCourseService creates a new CourseService
func NewCourseService(index driven.SemanticIndex) driving.CourseService {
	return &courseService{index: index}
}

// Analytics returns the number of courses in the catalog and their titles
func (s *courseService) Analytics(ctx context.Context) (*domain.CourseAnalytics, error) {
	records, err := s.index.Get(ctx, domain.CollectionCatalog)
	if err != nil {
		return nil, fmt.Errorf("failed to read course catalog: %w", err)
	}

	titles := make([]string, 0, len(records))
	for _, r := range records {
		title, ok := domain.MetadataString(r.Metadata, domain.MetaTitle)
		if !ok || title == "" {
			title = r.ID
		}
		titles = append(titles, title)
	}

	return &domain.CourseAnalytics{
		TotalCourses: len(titles),
		CourseTitles: titles,
	}, nil
}

// List returns every catalog course. Records with unreadable metadata are skipped.
func (s *courseService) List(ctx context.Context) ([]*domain.Course, error) {
	records, err := s.index.Get(ctx, domain.CollectionCatalog)
	if err != nil {
		return nil, fmt.Errorf("failed to read course catalog: %w", err)
	}

	courses := make([]*domain.Course, 0, len(records))
	for _, r := range records {
		course, err := domain.CourseFromMetadata(r.Metadata)
		if err != nil {
			continue
		}
		courses = append(courses, course)
	}
	return courses, nil
}
