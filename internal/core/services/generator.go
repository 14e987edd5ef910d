package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-courses/internal/runtime"
)

// Ensure Generator implements ResponseGenerator
var _ driving.ResponseGenerator = (*Generator)(nil)

// DefaultSystemPrompt instructs the model how to use the course search tool
const DefaultSystemPrompt = `You are an AI assistant specialized in course materials and educational content with access to a comprehensive search tool for course information.

Search Tool Usage:
- Use the search tool for questions about specific course content
- You may make up to 2 sequential searches per query for complex questions
- For comparison questions, search each topic separately to gather complete information
- For multi-part questions, use multiple searches to address each part thoroughly
- Synthesize search results into accurate, fact-based responses
- If search yields no results, state this clearly

Response Protocol:
- Provide direct, concise answers based on search results
- Be educational and use examples when helpful
- Cite course names and lesson numbers when referencing specific content

All responses must be:
1. Brief and focused
2. Educational
3. Clear and accessible
4. Example-supported when helpful`

// RoundLimitAnswer is returned when the model still asks for tools after the
// last round and gives no text alongside the request
const RoundLimitAnswer = "I could not finish searching the course materials for this question. Please try asking it more specifically."

// GeneratorConfig holds configuration for the Generator
type GeneratorConfig struct {
	Services      *runtime.Services
	SystemPrompt  string
	MaxToolRounds int
	MaxTokens     int
	Temperature   float64
	Logger        *slog.Logger
}

// Generator runs the bounded tool-use loop against the current model client.
//
// Round n offers tools only while n < MaxToolRounds. A text response ends the
// exchange in any round. When every tool call of a round fails the loop stops
// and one last tool-free query is made; if that fails too a fixed apology is
// returned instead of an error.
type Generator struct {
	services     *runtime.Services
	systemPrompt string
	maxRounds    int
	maxTokens    int
	temperature  float64
	logger       *slog.Logger
}

// NewGenerator creates a new Generator
func NewGenerator(cfg GeneratorConfig) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = domain.DefaultMaxToolRounds
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = domain.DefaultMaxTokens
	}

	return &Generator{
		services:     cfg.Services,
		systemPrompt: cfg.SystemPrompt,
		maxRounds:    cfg.MaxToolRounds,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		logger:       logger,
	}
}

// toolRound is the outcome of dispatching one round of tool calls
type toolRound struct {
	results   []domain.ToolResult
	succeeded int
	lastErr   string
	sources   []domain.Source
}

// Generate answers req.Query, calling tools through req.Registry as the model asks.
// Model failures are returned wrapped, except in the all-tools-failed path.
func (g *Generator) Generate(ctx context.Context, req driving.GenerateRequest) (*domain.Generation, error) {
	client := g.services.ModelClient()
	if client == nil {
		return nil, fmt.Errorf("%w: no model configured", domain.ErrServiceUnavailable)
	}

	system := g.systemPrompt
	if req.History != "" {
		system += "\n\nPrevious conversation:\n" + req.History
	}

	conversation := []domain.Message{
		domain.TextMessage{Role: domain.RoleUser, Content: req.Query},
	}
	gen := &domain.Generation{}

	for round := 0; ; round++ {
		var tools []domain.ToolDefinition
		if round < g.maxRounds && len(req.Tools) > 0 {
			tools = req.Tools
		}

		resp, err := g.query(ctx, client, gen, system, conversation, tools)
		if err != nil {
			return nil, fmt.Errorf("failed to query model (round %d): %w", round, err)
		}

		if !resp.RequestsTools() {
			gen.Text = resp.Text
			return gen, nil
		}

		// Tools were not on offer, so this query was already the tool-free final one
		if round >= g.maxRounds {
			g.logger.Warn("model requested tools after the round limit", "round", round, "calls", len(resp.ToolCalls))
			gen.Text = resp.Text
			if gen.Text == "" {
				g.logger.Warn("no answer text at the round limit, using fallback", "round", round)
				gen.Text = RoundLimitAnswer
			}
			return gen, nil
		}

		outcome := g.dispatch(ctx, req.Registry, resp.ToolCalls)
		request := domain.ToolRequestMessage{Calls: resp.ToolCalls}

		if outcome.succeeded == 0 {
			return g.degrade(ctx, client, gen, system, conversation, request, outcome.lastErr), nil
		}

		if outcome.sources != nil {
			gen.Sources = outcome.sources
		}
		conversation = append(conversation, request, domain.ToolResultMessage{Results: outcome.results})
	}
}

func (g *Generator) query(ctx context.Context, client driven.ModelClient, gen *domain.Generation, system string, conversation []domain.Message, tools []domain.ToolDefinition) (*domain.ModelResponse, error) {
	gen.ModelCalls++
	g.logger.Debug("querying model", "model", client.Model(), "messages", len(conversation), "tools", len(tools))

	return client.CreateMessage(ctx, &domain.ModelRequest{
		System:      system,
		Messages:    conversation,
		Tools:       tools,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
}

// dispatch runs every call in order. Each failure becomes an error-flagged
// result for that call only.
func (g *Generator) dispatch(ctx context.Context, registry driven.ToolRegistry, calls []domain.ToolCall) toolRound {
	var round toolRound

	for _, call := range calls {
		out, err := g.invoke(ctx, registry, call)
		if err != nil {
			msg := fmt.Sprintf("Error executing %s: %v", call.Name, err)
			g.logger.Warn("tool call failed", "tool", call.Name, "call_id", call.ID, "error", err)
			round.results = append(round.results, domain.ToolResult{CallID: call.ID, Content: msg, IsError: true})
			round.lastErr = msg
			continue
		}

		round.succeeded++
		round.results = append(round.results, domain.ToolResult{CallID: call.ID, Content: out.Content})
		if len(out.Sources) > 0 {
			round.sources = out.Sources
		}
	}

	return round
}

func (g *Generator) invoke(ctx context.Context, registry driven.ToolRegistry, call domain.ToolCall) (out *domain.ToolOutput, err error) {
	if registry == nil {
		return nil, domain.ErrNoToolRegistry
	}

	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	out, err = registry.Dispatch(ctx, call.Name, call.Input)
	if err == nil && out == nil {
		out = &domain.ToolOutput{}
	}
	return out, err
}

// degrade handles a round in which no tool call succeeded: the failure is
// reported to the model as a single error result and one tool-free answer is
// requested.
func (g *Generator) degrade(ctx context.Context, client driven.ModelClient, gen *domain.Generation, system string, conversation []domain.Message, request domain.ToolRequestMessage, lastErr string) *domain.Generation {
	callID := "unknown"
	if len(request.Calls) > 0 && request.Calls[0].ID != "" {
		callID = request.Calls[0].ID
	}

	conversation = append(conversation, request, domain.ToolResultMessage{
		Results: []domain.ToolResult{{
			CallID:  callID,
			Content: "Tool execution failed: " + lastErr,
			IsError: true,
		}},
	})

	resp, err := g.query(ctx, client, gen, system, conversation, nil)
	if err != nil {
		g.logger.Error("final query after tool failure failed", "error", err)
		gen.Text = "I encountered an error while searching: " + lastErr
		return gen
	}

	gen.Text = resp.Text
	return gen
}
