package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-courses/internal/runtime"
	"github.com/custodia-labs/sercha-courses/internal/tools"
)

// fakeGenerator records requests and returns a fixed generation
type fakeGenerator struct {
	requests []driving.GenerateRequest
	result   *domain.Generation
	err      error
}

func (f *fakeGenerator) Generate(ctx context.Context, req driving.GenerateRequest) (*domain.Generation, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestQueryService_NewSession(t *testing.T) {
	gen := &fakeGenerator{result: &domain.Generation{Text: "an answer"}}
	history := mocks.NewMockHistoryStore()
	registry := tools.NewRegistry()
	registry.Register(mocks.NewMockTool("search_course_content", "x"))

	svc := NewQueryService(QueryServiceConfig{Generator: gen, Registry: registry, History: history})
	result, err := svc.Query(context.Background(), domain.QueryRequest{Query: "What is MCP?"})

	require.NoError(t, err)
	assert.Equal(t, "an answer", result.Answer)
	assert.NotEmpty(t, result.SessionID)
	assert.NotNil(t, result.Sources, "sources serialise as an empty list")

	require.Len(t, gen.requests, 1)
	req := gen.requests[0]
	assert.Equal(t, "Answer this question about course materials: What is MCP?", req.Query)
	assert.Empty(t, req.History)
	assert.Len(t, req.Tools, 1)
	assert.NotNil(t, req.Registry)

	stored, err := history.Get(context.Background(), result.SessionID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "What is MCP?", stored[0].Query, "history stores the raw question")
	assert.Equal(t, "an answer", stored[0].Answer)
}

func TestQueryService_HistoryIsBoundedAndFormatted(t *testing.T) {
	gen := &fakeGenerator{result: &domain.Generation{Text: "a"}}
	history := mocks.NewMockHistoryStore()
	svc := NewQueryService(QueryServiceConfig{Generator: gen, History: history, MaxHistory: 2})
	ctx := context.Background()

	for _, q := range []string{"q1", "q2", "q3"} {
		_, err := svc.Query(ctx, domain.QueryRequest{Query: q, SessionID: "s1"})
		require.NoError(t, err)
	}
	_, err := svc.Query(ctx, domain.QueryRequest{Query: "q4", SessionID: "s1"})
	require.NoError(t, err)

	last := gen.requests[len(gen.requests)-1]
	assert.Equal(t, "User: q2\nAssistant: a\nUser: q3\nAssistant: a", last.History)
}

func TestQueryService_EmptyQuery(t *testing.T) {
	svc := NewQueryService(QueryServiceConfig{Generator: &fakeGenerator{}})
	_, err := svc.Query(context.Background(), domain.QueryRequest{Query: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQueryService_GeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: domain.ErrServiceUnavailable}
	history := mocks.NewMockHistoryStore()
	svc := NewQueryService(QueryServiceConfig{Generator: gen, History: history})

	_, err := svc.Query(context.Background(), domain.QueryRequest{Query: "q", SessionID: "s"})

	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.Equal(t, 0, history.Sessions(), "failed exchanges are not recorded")
}

func TestQueryService_HistoryFailureIsNotFatal(t *testing.T) {
	gen := &fakeGenerator{result: &domain.Generation{Text: "still answered"}}
	history := mocks.NewMockHistoryStore()
	history.SetFailNext(true)
	svc := NewQueryService(QueryServiceConfig{Generator: gen, History: history})

	result, err := svc.Query(context.Background(), domain.QueryRequest{Query: "q", SessionID: "s"})

	require.NoError(t, err)
	assert.Equal(t, "still answered", result.Answer)
}

func TestQueryService_ClearsRegistrySources(t *testing.T) {
	registry := tools.NewRegistry()
	tool := mocks.NewMockTool("search_course_content", "x", domain.NewSource("C", nil))
	registry.Register(tool)
	_, _ = registry.Dispatch(context.Background(), "search_course_content", nil)
	require.Len(t, registry.CollectSources(), 1)

	svc := NewQueryService(QueryServiceConfig{Generator: &fakeGenerator{result: &domain.Generation{}}, Registry: registry})
	_, err := svc.Query(context.Background(), domain.QueryRequest{Query: "q"})

	require.NoError(t, err)
	assert.Empty(t, registry.CollectSources())
}

func TestQueryService_ClearSession(t *testing.T) {
	history := mocks.NewMockHistoryStore()
	ctx := context.Background()
	require.NoError(t, history.Append(ctx, "s1", domain.Exchange{Query: "q", Answer: "a"}, 2))

	svc := NewQueryService(QueryServiceConfig{Generator: &fakeGenerator{}, History: history})
	require.NoError(t, svc.ClearSession(ctx, "s1"))

	_, err := history.Get(ctx, "s1")
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))

	assert.ErrorIs(t, svc.ClearSession(ctx, ""), domain.ErrInvalidInput)
}

// End to end: real generator, registry and search tool over a mock index
func TestQueryService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	index := mocks.NewMockSemanticIndex()
	lesson := 1
	require.NoError(t, index.AddCourse(ctx, &domain.Course{
		Title:   "MCP: Build Rich-Context AI Apps",
		Lessons: []domain.Lesson{{Number: 1, Title: "Intro", Link: "https://example.com/mcp/1"}},
	}))
	require.NoError(t, index.AddChunks(ctx, []domain.ContentChunk{
		{Text: "MCP servers expose tools", CourseTitle: "MCP: Build Rich-Context AI Apps", LessonNumber: &lesson},
	}))

	search, err := tools.NewCourseSearchTool(tools.CourseSearchConfig{Index: index})
	require.NoError(t, err)
	registry := tools.NewRegistry()
	registry.Register(search)

	client := &MockModelClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(toolResponse(domain.ToolCall{
		ID:    "toolu_1",
		Name:  tools.CourseSearchToolName,
		Input: map[string]any{"query": "servers", "course_name": "MCP"},
	}), nil).Once()
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse("MCP servers expose tools."), nil).Once()

	services := runtime.NewServices(domain.NewRuntimeConfig("memory", "memory"))
	services.SetModelClient(client)

	svc := NewQueryService(QueryServiceConfig{
		Generator: NewGenerator(GeneratorConfig{Services: services}),
		Registry:  registry,
		History:   mocks.NewMockHistoryStore(),
	})

	result, err := svc.Query(ctx, domain.QueryRequest{Query: "What do MCP servers do?"})
	require.NoError(t, err)

	assert.Equal(t, "MCP servers expose tools.", result.Answer)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "MCP: Build Rich-Context AI Apps - Lesson 1", result.Sources[0].DisplayText)
	assert.Equal(t, "https://example.com/mcp/1", result.Sources[0].LessonLink)

	toolResult := client.request(t, 1).Messages[2].(domain.ToolResultMessage).Results[0]
	assert.Equal(t, "[MCP: Build Rich-Context AI Apps - Lesson 1]\nMCP servers expose tools", toolResult.Content)
}
