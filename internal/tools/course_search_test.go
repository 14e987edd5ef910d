package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven/mocks"
)

func lessonPtr(n int) *int { return &n }

func newPopulatedIndex(t *testing.T) *mocks.MockSemanticIndex {
	t.Helper()
	ctx := context.Background()
	index := mocks.NewMockSemanticIndex()

	require.NoError(t, index.AddCourse(ctx, &domain.Course{
		Title:      "Introduction to Python",
		Link:       "https://example.com/python",
		Instructor: "John Doe",
		Lessons: []domain.Lesson{
			{Number: 1, Title: "Getting Started", Link: "https://example.com/lesson1"},
			{Number: 2, Title: "Variables", Link: "https://example.com/lesson2"},
		},
	}))
	require.NoError(t, index.AddCourse(ctx, &domain.Course{
		Title: "Advanced Machine Learning",
		Lessons: []domain.Lesson{
			{Number: 1, Title: "Neural Networks"},
		},
	}))

	require.NoError(t, index.AddChunks(ctx, []domain.ContentChunk{
		{Text: "Python is a high-level programming language", CourseTitle: "Introduction to Python", LessonNumber: lessonPtr(1), ChunkIndex: 0},
		{Text: "Variables store values in python programs", CourseTitle: "Introduction to Python", LessonNumber: lessonPtr(2), ChunkIndex: 1},
		{Text: "Neural networks learn representations", CourseTitle: "Advanced Machine Learning", LessonNumber: lessonPtr(1), ChunkIndex: 0},
		{Text: "Course overview for python learners", CourseTitle: "Introduction to Python", ChunkIndex: 2},
	}))
	return index
}

func newTool(t *testing.T, index *mocks.MockSemanticIndex) *CourseSearchTool {
	t.Helper()
	tool, err := NewCourseSearchTool(CourseSearchConfig{Index: index})
	require.NoError(t, err)
	return tool
}

func TestCourseSearchTool_Definition(t *testing.T) {
	tool := newTool(t, mocks.NewMockSemanticIndex())
	def := tool.Definition()

	assert.Equal(t, "search_course_content", def.Name)
	require.NotNil(t, def.InputSchema)
	assert.Equal(t, []string{"query"}, def.InputSchema.Required)
	assert.Equal(t, "integer", def.InputSchema.Properties["lesson_number"].Type)
	assert.Equal(t, "string", def.InputSchema.Properties["course_name"].Type)
}

func TestNewCourseSearchTool_RequiresIndex(t *testing.T) {
	_, err := NewCourseSearchTool(CourseSearchConfig{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCourseSearchTool_QueryOnly(t *testing.T) {
	index := newPopulatedIndex(t)
	tool := newTool(t, index)

	out, err := tool.Execute(context.Background(), map[string]any{"query": "python"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out.Content, "[Introduction to Python - Lesson 1]\nPython is a high-level programming language"))
	assert.Contains(t, out.Content, "\n\n[Introduction to Python]\nCourse overview for python learners")
	assert.Len(t, out.Sources, len(strings.Split(out.Content, "\n\n")))

	content := index.QueriesFor(domain.CollectionContent)
	require.Len(t, content, 1)
	assert.True(t, content[0].Filter.IsNone())
	assert.Equal(t, domain.DefaultMaxResults, content[0].TopK)
	assert.Empty(t, index.QueriesFor(domain.CollectionCatalog), "no course name means no resolution")
}

func TestCourseSearchTool_SourcesCarryLessonLinks(t *testing.T) {
	tool := newTool(t, newPopulatedIndex(t))

	out, err := tool.Execute(context.Background(), map[string]any{"query": "python", "course_name": "Python"})
	require.NoError(t, err)
	require.NotEmpty(t, out.Sources)

	first := out.Sources[0]
	assert.Equal(t, "Introduction to Python - Lesson 1", first.DisplayText)
	assert.Equal(t, "https://example.com/lesson1", first.LessonLink)

	last := out.Sources[len(out.Sources)-1]
	assert.Equal(t, "Introduction to Python", last.DisplayText)
	assert.Empty(t, last.LessonLink)
}

func TestCourseSearchTool_CourseAndLessonFilter(t *testing.T) {
	index := newPopulatedIndex(t)
	tool := newTool(t, index)

	out, err := tool.Execute(context.Background(), map[string]any{
		"query":         "variables",
		"course_name":   "python",
		"lesson_number": float64(2),
	})
	require.NoError(t, err)

	assert.Equal(t, "[Introduction to Python - Lesson 2]\nVariables store values in python programs", out.Content)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "https://example.com/lesson2", out.Sources[0].LessonLink)

	q := index.QueriesFor(domain.CollectionContent)[0]
	assert.Equal(t, domain.FilterCourseAndLesson, q.Filter.Kind())
	title, _ := q.Filter.CourseTitle()
	assert.Equal(t, "Introduction to Python", title)
}

func TestCourseSearchTool_NoResults(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]any
		want  string
	}{
		{"lesson only", map[string]any{"query": "x", "lesson_number": 7}, "No relevant content found in lesson 7"},
		{"course only", map[string]any{"query": "x", "course_name": "machine"}, ""},
		{"course and lesson", map[string]any{"query": "x", "course_name": "machine", "lesson_number": 9}, "No relevant content found in course 'Advanced Machine Learning' in lesson 9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := newPopulatedIndex(t)
			tool := newTool(t, index)

			out, err := tool.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			if tt.want != "" {
				assert.Equal(t, tt.want, out.Content)
				assert.Empty(t, out.Sources)
			}
		})
	}
}

func TestCourseSearchTool_EmptyIndex(t *testing.T) {
	tool := newTool(t, mocks.NewMockSemanticIndex())

	out, err := tool.Execute(context.Background(), map[string]any{"query": "anything"})
	require.NoError(t, err)
	assert.Equal(t, "No relevant content found", out.Content)
	assert.Nil(t, out.Sources)
}

func TestCourseSearchTool_CourseNotFound(t *testing.T) {
	index := mocks.NewMockSemanticIndex() // empty catalog
	tool := newTool(t, index)

	out, err := tool.Execute(context.Background(), map[string]any{"query": "x", "course_name": "Nonexistent"})
	require.NoError(t, err)
	assert.Equal(t, "No course found matching 'Nonexistent'", out.Content)
	assert.Nil(t, out.Sources)
	assert.Empty(t, index.QueriesFor(domain.CollectionContent), "no content query after failed resolution")
}

func TestCourseSearchTool_EmptyCourseNameIsOmitted(t *testing.T) {
	index := newPopulatedIndex(t)
	tool := newTool(t, index)

	_, err := tool.Execute(context.Background(), map[string]any{"query": "python", "course_name": ""})
	require.NoError(t, err)
	assert.Empty(t, index.QueriesFor(domain.CollectionCatalog))
}

func TestCourseSearchTool_BlankCourseNameIsOmitted(t *testing.T) {
	index := newPopulatedIndex(t)
	tool := newTool(t, index)

	out, err := tool.Execute(context.Background(), map[string]any{"query": "python", "course_name": "   "})
	require.NoError(t, err)

	assert.False(t, strings.HasPrefix(out.Content, domain.SearchErrorPrefix), "got %q", out.Content)
	assert.NotEmpty(t, out.Sources)
	assert.Empty(t, index.QueriesFor(domain.CollectionCatalog), "blank name is not resolved")

	content := index.QueriesFor(domain.CollectionContent)
	require.Len(t, content, 1)
	assert.True(t, content[0].Filter.IsNone())
}

func TestCourseSearchTool_IndexErrors(t *testing.T) {
	t.Run("content query", func(t *testing.T) {
		index := newPopulatedIndex(t)
		index.SetQueryError(domain.CollectionContent, errors.New("index offline"))

		out, err := newTool(t, index).Execute(context.Background(), map[string]any{"query": "python"})
		require.NoError(t, err)
		assert.Equal(t, "Search error: index offline", out.Content)
		assert.Nil(t, out.Sources)
	})

	t.Run("resolution", func(t *testing.T) {
		index := newPopulatedIndex(t)
		index.SetQueryError(domain.CollectionCatalog, errors.New("catalog offline"))

		out, err := newTool(t, index).Execute(context.Background(), map[string]any{"query": "python", "course_name": "py"})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out.Content, domain.SearchErrorPrefix))
		assert.Contains(t, out.Content, "catalog offline")
	})

	t.Run("lesson link lookup", func(t *testing.T) {
		index := newPopulatedIndex(t)
		index.SetGetError(errors.New("get failed"))

		out, err := newTool(t, index).Execute(context.Background(), map[string]any{"query": "python"})
		require.NoError(t, err)
		require.NotEmpty(t, out.Sources)
		for _, s := range out.Sources {
			assert.Empty(t, s.LessonLink)
		}
	})
}

func TestCourseSearchTool_InvalidInput(t *testing.T) {
	tool := newTool(t, newPopulatedIndex(t))

	inputs := []map[string]any{
		nil,
		{"course_name": "python"},
		{"query": 42},
		{"query": "x", "lesson_number": "two"},
		{"query": "x", "lesson_number": 1.5},
	}
	for _, input := range inputs {
		_, err := tool.Execute(context.Background(), input)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "input %v", input)
	}
}

func TestCourseSearchTool_LinkLookupOncePerCourse(t *testing.T) {
	index := newPopulatedIndex(t)
	tool := newTool(t, index)

	_, err := tool.Execute(context.Background(), map[string]any{"query": "python", "course_name": "python"})
	require.NoError(t, err)
	assert.Equal(t, 1, index.GetCalls())
}
