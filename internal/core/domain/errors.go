package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrCourseNotFound indicates no catalog entry could be matched to a course name
	ErrCourseNotFound = errors.New("course not found")

	// ErrSessionNotFound indicates the conversation session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrNoToolRegistry indicates the model requested a tool but no registry was supplied
	ErrNoToolRegistry = errors.New("no tool registry provided")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates the AI service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)
