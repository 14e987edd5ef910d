package domain

import (
	"encoding/json"
	"fmt"
)

// Catalog and content metadata keys shared by every SemanticIndex adapter
const (
	MetaTitle        = "title"
	MetaInstructor   = "instructor"
	MetaCourseLink   = "course_link"
	MetaLessonsJSON  = "lessons_json"
	MetaLessonCount  = "lesson_count"
	MetaCourseTitle  = "course_title"
	MetaLessonNumber = "lesson_number"
	MetaChunkIndex   = "chunk_index"
)

// Lesson is a single numbered lesson within a course
type Lesson struct {
	Number int    `json:"lesson_number" yaml:"number"`
	Title  string `json:"lesson_title" yaml:"title"`
	Link   string `json:"lesson_link,omitempty" yaml:"link"`
}

// Course is a catalog entry. Title is the unique identifier.
type Course struct {
	Title      string   `json:"title" yaml:"title"`
	Link       string   `json:"course_link,omitempty" yaml:"link"`
	Instructor string   `json:"instructor,omitempty" yaml:"instructor"`
	Lessons    []Lesson `json:"lessons,omitempty" yaml:"lessons"`
}

// Lesson returns the lesson with the given number
func (c *Course) Lesson(number int) (*Lesson, bool) {
	for i := range c.Lessons {
		if c.Lessons[i].Number == number {
			return &c.Lessons[i], true
		}
	}
	return nil, false
}

// CatalogMetadata flattens the course into catalog collection metadata.
// Lessons are serialised to JSON since index metadata only holds scalars.
func (c *Course) CatalogMetadata() (map[string]any, error) {
	lessons := c.Lessons
	if lessons == nil {
		lessons = []Lesson{}
	}
	data, err := json.Marshal(lessons)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lessons: %w", err)
	}

	return map[string]any{
		MetaTitle:       c.Title,
		MetaInstructor:  c.Instructor,
		MetaCourseLink:  c.Link,
		MetaLessonsJSON: string(data),
		MetaLessonCount: len(c.Lessons),
	}, nil
}

// CourseFromMetadata rebuilds a course from catalog collection metadata
func CourseFromMetadata(meta map[string]any) (*Course, error) {
	title, _ := meta[MetaTitle].(string)
	if title == "" {
		return nil, fmt.Errorf("%w: catalog metadata has no title", ErrInvalidInput)
	}

	course := &Course{Title: title}
	course.Instructor, _ = meta[MetaInstructor].(string)
	course.Link, _ = meta[MetaCourseLink].(string)

	if raw, ok := meta[MetaLessonsJSON].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &course.Lessons); err != nil {
			return nil, fmt.Errorf("failed to parse lessons for %q: %w", title, err)
		}
	}

	return course, nil
}

// ContentChunk is a piece of lesson text stored in the content collection.
// CourseTitle is a weak reference to a catalog Course.
type ContentChunk struct {
	Text         string `json:"text" yaml:"text"`
	CourseTitle  string `json:"course_title" yaml:"course_title"`
	LessonNumber *int   `json:"lesson_number,omitempty" yaml:"lesson_number"`
	ChunkIndex   int    `json:"chunk_index" yaml:"chunk_index"`
}

// ID returns the stable record ID of the chunk
func (c *ContentChunk) ID() string {
	if c.LessonNumber == nil {
		return fmt.Sprintf("%s_%d", c.CourseTitle, c.ChunkIndex)
	}
	return fmt.Sprintf("%s_%d_%d", c.CourseTitle, *c.LessonNumber, c.ChunkIndex)
}

// Metadata returns the content collection metadata for the chunk
func (c *ContentChunk) Metadata() map[string]any {
	meta := map[string]any{
		MetaCourseTitle: c.CourseTitle,
		MetaChunkIndex:  c.ChunkIndex,
	}
	if c.LessonNumber != nil {
		meta[MetaLessonNumber] = *c.LessonNumber
	}
	return meta
}

// CourseAnalytics summarises the course catalog
type CourseAnalytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// MetadataString reads a string value from index metadata
func MetadataString(meta map[string]any, key string) (string, bool) {
	s, ok := meta[key].(string)
	return s, ok
}

// MetadataInt reads an integer value from index metadata.
// Adapters decode numbers differently (JSON gives float64, drivers give int64).
func MetadataInt(meta map[string]any, key string) (int, bool) {
	switch v := meta[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
