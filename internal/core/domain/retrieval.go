package domain

import "fmt"

// Collection names a logical collection of the semantic index
type Collection string

const (
	CollectionCatalog Collection = "course_catalog" // one record per course
	CollectionContent Collection = "course_content" // many chunks per course
)

// DefaultMaxResults is the top-K used for content queries when none is configured
const DefaultMaxResults = 5

// SearchErrorPrefix marks tool output produced by an index failure,
// as opposed to an empty result.
const SearchErrorPrefix = "Search error: "

// SimilarityMatch is one nearest-neighbour hit. Lower distance is closer;
// distances are only comparable with each other, not bounded.
type SimilarityMatch struct {
	ID       string         `json:"id"`
	Document string         `json:"document"`
	Metadata map[string]any `json:"metadata"`
	Distance float64        `json:"distance"`
}

// IndexRecord is a raw record returned by an exact get
type IndexRecord struct {
	ID       string         `json:"id"`
	Document string         `json:"document"`
	Metadata map[string]any `json:"metadata"`
}

// FilterKind enumerates the shapes a RetrievalFilter can take
type FilterKind int

const (
	FilterNone FilterKind = iota
	FilterCourse
	FilterLesson
	FilterCourseAndLesson
)

func (k FilterKind) String() string {
	switch k {
	case FilterCourse:
		return "course"
	case FilterLesson:
		return "lesson"
	case FilterCourseAndLesson:
		return "course_and_lesson"
	default:
		return "none"
	}
}

// RetrievalFilter restricts a content query by equality on course title
// and/or lesson number. It is an immutable value; build it with BuildFilter.
type RetrievalFilter struct {
	kind         FilterKind
	courseTitle  string
	lessonNumber int
}

// BuildFilter composes the content filter from an optional course title and
// optional lesson number. There is no defaulting: absent means unconstrained.
func BuildFilter(courseTitle *string, lessonNumber *int) RetrievalFilter {
	switch {
	case courseTitle != nil && lessonNumber != nil:
		return RetrievalFilter{kind: FilterCourseAndLesson, courseTitle: *courseTitle, lessonNumber: *lessonNumber}
	case courseTitle != nil:
		return RetrievalFilter{kind: FilterCourse, courseTitle: *courseTitle}
	case lessonNumber != nil:
		return RetrievalFilter{kind: FilterLesson, lessonNumber: *lessonNumber}
	default:
		return RetrievalFilter{}
	}
}

// Kind returns the shape of the filter
func (f RetrievalFilter) Kind() FilterKind {
	return f.kind
}

// IsNone reports whether the filter places no constraint
func (f RetrievalFilter) IsNone() bool {
	return f.kind == FilterNone
}

// CourseTitle returns the course equality predicate, if any
func (f RetrievalFilter) CourseTitle() (string, bool) {
	if f.kind == FilterCourse || f.kind == FilterCourseAndLesson {
		return f.courseTitle, true
	}
	return "", false
}

// LessonNumber returns the lesson equality predicate, if any
func (f RetrievalFilter) LessonNumber() (int, bool) {
	if f.kind == FilterLesson || f.kind == FilterCourseAndLesson {
		return f.lessonNumber, true
	}
	return 0, false
}

// Matches evaluates the filter against content collection metadata
func (f RetrievalFilter) Matches(meta map[string]any) bool {
	if title, ok := f.CourseTitle(); ok {
		got, _ := MetadataString(meta, MetaCourseTitle)
		if got != title {
			return false
		}
	}
	if lesson, ok := f.LessonNumber(); ok {
		got, present := MetadataInt(meta, MetaLessonNumber)
		if !present || got != lesson {
			return false
		}
	}
	return true
}

// Describe renders the active predicates for "no results" messages,
// e.g. " in course 'X' in lesson 2". Empty for the none filter.
func (f RetrievalFilter) Describe() string {
	var s string
	if title, ok := f.CourseTitle(); ok {
		s += fmt.Sprintf(" in course '%s'", title)
	}
	if lesson, ok := f.LessonNumber(); ok {
		s += fmt.Sprintf(" in lesson %d", lesson)
	}
	return s
}

// Source is a display citation derived from one retrieval match
type Source struct {
	CourseTitle  string `json:"course_title"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
	DisplayText  string `json:"display_text"`
	LessonLink   string `json:"lesson_link,omitempty"`
}

// NewSource builds a source with its display text
func NewSource(courseTitle string, lessonNumber *int) Source {
	display := courseTitle
	if lessonNumber != nil {
		display = fmt.Sprintf("%s - Lesson %d", courseTitle, *lessonNumber)
	}
	return Source{
		CourseTitle:  courseTitle,
		LessonNumber: lessonNumber,
		DisplayText:  display,
	}
}

// ToolOutput is the result of one tool invocation: the text handed back to
// the model plus the sources it produced. Sources is nil when the call
// produced none (no matches, unresolved course, errors).
type ToolOutput struct {
	Content string   `json:"content"`
	Sources []Source `json:"sources,omitempty"`
}
