package services

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven/mocks"
)

func TestCourseService_Analytics(t *testing.T) {
	ctx := context.Background()
	index := mocks.NewMockSemanticIndex()
	for _, title := range []string{"Course A", "Course B"} {
		if err := index.AddCourse(ctx, &domain.Course{Title: title}); err != nil {
			t.Fatal(err)
		}
	}

	analytics, err := NewCourseService(index).Analytics(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analytics.TotalCourses != 2 {
		t.Errorf("expected 2 courses, got %d", analytics.TotalCourses)
	}
	if analytics.CourseTitles[0] != "Course A" || analytics.CourseTitles[1] != "Course B" {
		t.Errorf("unexpected titles %v", analytics.CourseTitles)
	}
}

func TestCourseService_AnalyticsEmpty(t *testing.T) {
	analytics, err := NewCourseService(mocks.NewMockSemanticIndex()).Analytics(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analytics.TotalCourses != 0 || len(analytics.CourseTitles) != 0 {
		t.Errorf("expected empty analytics, got %+v", analytics)
	}
}

func TestCourseService_IndexError(t *testing.T) {
	index := mocks.NewMockSemanticIndex()
	boom := errors.New("offline")
	index.SetGetError(boom)

	if _, err := NewCourseService(index).Analytics(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected wrapped index error, got %v", err)
	}
	if _, err := NewCourseService(index).List(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected wrapped index error, got %v", err)
	}
}

func TestCourseService_List(t *testing.T) {
	ctx := context.Background()
	index := mocks.NewMockSemanticIndex()
	course := &domain.Course{
		Title:      "Course A",
		Instructor: "Jane",
		Lessons:    []domain.Lesson{{Number: 0, Title: "Intro"}},
	}
	if err := index.AddCourse(ctx, course); err != nil {
		t.Fatal(err)
	}

	courses, err := NewCourseService(index).List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(courses) != 1 || courses[0].Instructor != "Jane" || len(courses[0].Lessons) != 1 {
		t.Errorf("unexpected courses %+v", courses)
	}
}
