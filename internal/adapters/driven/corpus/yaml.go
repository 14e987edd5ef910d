// Package corpus reads externally prepared course corpora.
//
// The YAML layout is:
//
//	courses:
//	  - title: Introduction to Python
//	    instructor: John Doe
//	    link: https://example.com/python
//	    lessons:
//	      - {number: 1, title: Getting Started, link: https://example.com/python/1}
//	chunks:
//	  - course_title: Introduction to Python
//	    lesson_number: 1
//	    chunk_index: 0
//	    text: ...
package corpus

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
)

// Parse decodes a YAML corpus. Unknown fields are rejected.
func Parse(r io.Reader) (*domain.Corpus, error) {
	var c domain.Corpus
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode corpus: %w", err)
	}
	if err := validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ReadFile parses the corpus at path
func ReadFile(path string) (*domain.Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func validate(c *domain.Corpus) error {
	seen := make(map[string]bool, len(c.Courses))
	for i, course := range c.Courses {
		if course.Title == "" {
			return fmt.Errorf("%w: course %d has no title", domain.ErrInvalidInput, i)
		}
		if seen[course.Title] {
			return fmt.Errorf("%w: duplicate course %q", domain.ErrInvalidInput, course.Title)
		}
		seen[course.Title] = true
	}
	for i, chunk := range c.Chunks {
		if chunk.CourseTitle == "" {
			return fmt.Errorf("%w: chunk %d has no course_title", domain.ErrInvalidInput, i)
		}
	}
	return nil
}
