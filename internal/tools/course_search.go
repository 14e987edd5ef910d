package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
)

// CourseSearchToolName is the name the model uses to call the search tool
const CourseSearchToolName = "search_course_content"

// Verify interface compliance
var _ driven.Tool = (*CourseSearchTool)(nil)

// CourseSearchConfig holds configuration for the course search tool
type CourseSearchConfig struct {
	Index      driven.SemanticIndex
	MaxResults int // top-K for content queries; defaults to domain.DefaultMaxResults
	Logger     *slog.Logger
}

// CourseSearchTool searches lesson content, optionally narrowed to a course
// (resolved by fuzzy name) and/or a lesson number.
type CourseSearchTool struct {
	index      driven.SemanticIndex
	resolver   *CourseResolver
	maxResults int
	schema     *jsonschema.Schema
	resolved   *jsonschema.Resolved
	logger     *slog.Logger
}

type courseSearchInput struct {
	Query        string `json:"query"`
	CourseName   string `json:"course_name,omitempty"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
}

// NewCourseSearchTool creates the search tool over the given index.
func NewCourseSearchTool(cfg CourseSearchConfig) (*CourseSearchTool, error) {
	if cfg.Index == nil {
		return nil, fmt.Errorf("%w: course search requires an index", domain.ErrInvalidInput)
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = domain.DefaultMaxResults
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	schema := courseSearchSchema()
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input schema: %w", err)
	}

	return &CourseSearchTool{
		index:      cfg.Index,
		resolver:   NewCourseResolver(cfg.Index),
		maxResults: cfg.MaxResults,
		schema:     schema,
		resolved:   resolved,
		logger:     cfg.Logger,
	}, nil
}

func courseSearchSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query": {
				Type:        "string",
				Description: "What to search for in the course content",
			},
			"course_name": {
				Type:        "string",
				Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
			},
			"lesson_number": {
				Type:        "integer",
				Description: "Specific lesson number to search within (e.g. 1, 2, 3)",
			},
		},
		Required: []string{"query"},
	}
}

// Definition returns the schema advertised to the model.
func (t *CourseSearchTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Name:        CourseSearchToolName,
		Description: "Search course materials with smart course name matching and lesson filtering",
		InputSchema: t.schema,
	}
}

// Execute validates the input and runs the search. Only malformed input is
// returned as an error; unresolved courses, empty results and index failures
// are reported in the output text with no sources.
func (t *CourseSearchTool) Execute(ctx context.Context, input map[string]any) (*domain.ToolOutput, error) {
	args, err := t.parseInput(input)
	if err != nil {
		return nil, err
	}

	var courseTitle *string
	if args.CourseName != "" {
		title, err := t.resolver.Resolve(ctx, args.CourseName)
		switch {
		case errors.Is(err, domain.ErrCourseNotFound):
			return &domain.ToolOutput{Content: fmt.Sprintf("No course found matching '%s'", args.CourseName)}, nil
		case err != nil:
			t.logger.Warn("course resolution failed", "course_name", args.CourseName, "error", err)
			return &domain.ToolOutput{Content: domain.SearchErrorPrefix + err.Error()}, nil
		}
		courseTitle = &title
	}

	filter := domain.BuildFilter(courseTitle, args.LessonNumber)
	matches, err := t.index.Query(ctx, domain.CollectionContent, args.Query, t.maxResults, filter)
	if err != nil {
		t.logger.Warn("content search failed", "filter", filter.Kind().String(), "error", err)
		return &domain.ToolOutput{Content: domain.SearchErrorPrefix + err.Error()}, nil
	}

	if len(matches) == 0 {
		return &domain.ToolOutput{Content: "No relevant content found" + filter.Describe()}, nil
	}

	return t.format(ctx, matches), nil
}

func (t *CourseSearchTool) parseInput(input map[string]any) (*courseSearchInput, error) {
	if input == nil {
		input = map[string]any{}
	}
	if err := t.resolved.Validate(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	data, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool input: %w", err)
	}
	var args courseSearchInput
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	// a blank course name is treated as omitted
	args.CourseName = strings.TrimSpace(args.CourseName)
	return &args, nil
}

// format renders one header+text block per match, best match first, and
// derives a source for each
func (t *CourseSearchTool) format(ctx context.Context, matches []domain.SimilarityMatch) *domain.ToolOutput {
	blocks := make([]string, 0, len(matches))
	sources := make([]domain.Source, 0, len(matches))
	courses := make(map[string]*domain.Course)

	for _, m := range matches {
		title, _ := domain.MetadataString(m.Metadata, domain.MetaCourseTitle)
		if title == "" {
			title = "unknown"
		}

		var lesson *int
		if n, ok := domain.MetadataInt(m.Metadata, domain.MetaLessonNumber); ok {
			lesson = &n
		}

		header := "[" + title
		if lesson != nil {
			header += fmt.Sprintf(" - Lesson %d", *lesson)
		}
		header += "]"
		blocks = append(blocks, header+"\n"+m.Document)

		source := domain.NewSource(title, lesson)
		if lesson != nil {
			source.LessonLink = t.lessonLink(ctx, courses, title, *lesson)
		}
		sources = append(sources, source)
	}

	return &domain.ToolOutput{
		Content: strings.Join(blocks, "\n\n"),
		Sources: sources,
	}
}

// lessonLink looks up a lesson's link in the catalog. Courses are fetched
// once per call; an unknown course or lesson yields "".
func (t *CourseSearchTool) lessonLink(ctx context.Context, courses map[string]*domain.Course, title string, lesson int) string {
	course, seen := courses[title]
	if !seen {
		course = t.fetchCourse(ctx, title)
		courses[title] = course
	}
	if course == nil {
		return ""
	}
	if l, ok := course.Lesson(lesson); ok {
		return l.Link
	}
	return ""
}

func (t *CourseSearchTool) fetchCourse(ctx context.Context, title string) *domain.Course {
	records, err := t.index.Get(ctx, domain.CollectionCatalog, title)
	if err != nil {
		t.logger.Debug("lesson link lookup failed", "course", title, "error", err)
		return nil
	}
	if len(records) == 0 {
		return nil
	}
	course, err := domain.CourseFromMetadata(records[0].Metadata)
	if err != nil {
		t.logger.Debug("invalid catalog metadata", "course", title, "error", err)
		return nil
	}
	return course
}
