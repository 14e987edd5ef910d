package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
)

// Ensure AnthropicModel implements ModelClient
var _ driven.ModelClient = (*AnthropicModel)(nil)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-sonnet-4-20250514"
)

// AnthropicModel implements ModelClient using the Anthropic Messages API
type AnthropicModel struct {
	client     anthropic.Client
	httpClient *http.Client
	model      string
}

// NewAnthropicModel creates a new Anthropic chat model client
func NewAnthropicModel(apiKey, model, baseURL string) (driven.ModelClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}

	httpClient := &http.Client{Timeout: 120 * time.Second}
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(strings.TrimRight(baseURL, "/")),
		option.WithHTTPClient(httpClient),
		// failed calls degrade in the generator
		option.WithMaxRetries(0),
	)

	return &AnthropicModel{
		client:     client,
		httpClient: httpClient,
		model:      model,
	}, nil
}

// CreateMessage runs one Messages API call
func (m *AnthropicModel) CreateMessage(ctx context.Context, req *domain.ModelRequest) (*domain.ModelResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = domain.DefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(m.model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(req.Temperature),
		Messages:    toAnthropicMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = toAnthropicTools(req.Tools)
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	}

	msg, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages request failed: %w", err)
	}

	return fromAnthropicMessage(msg), nil
}

// Model returns the model name being used
func (m *AnthropicModel) Model() string {
	return m.model
}

// Ping verifies the API is reachable and the key is accepted
func (m *AnthropicModel) Ping(ctx context.Context) error {
	if _, err := m.client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	return nil
}

// Close releases resources held by the client
func (m *AnthropicModel) Close() error {
	m.httpClient.CloseIdleConnections()
	return nil
}

func toAnthropicTools(defs []domain.ToolDefinition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		tool := anthropic.ToolParam{Name: def.Name}
		if def.Description != "" {
			tool.Description = anthropic.String(def.Description)
		}
		if def.InputSchema != nil {
			tool.InputSchema = anthropic.ToolInputSchemaParam{
				Properties: def.InputSchema.Properties,
				Required:   def.InputSchema.Required,
			}
		}
		tools = append(tools, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return tools
}

func toAnthropicMessages(conversation []domain.Message) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(conversation))

	for _, msg := range conversation {
		switch msg := msg.(type) {
		case domain.TextMessage:
			block := anthropic.NewTextBlock(msg.Content)
			if msg.Role == domain.RoleAssistant {
				messages = append(messages, anthropic.NewAssistantMessage(block))
			} else {
				messages = append(messages, anthropic.NewUserMessage(block))
			}

		case domain.ToolRequestMessage:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Calls))
			for _, call := range msg.Calls {
				input := call.Input
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, input, call.Name))
			}
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))

		case domain.ToolResultMessage:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Results))
			for _, result := range msg.Results {
				blocks = append(blocks, anthropic.NewToolResultBlock(result.CallID, result.Content, result.IsError))
			}
			messages = append(messages, anthropic.NewUserMessage(blocks...))
		}
	}

	return messages
}

// fromAnthropicMessage keeps the first text block and every tool_use block
func fromAnthropicMessage(msg *anthropic.Message) *domain.ModelResponse {
	out := &domain.ModelResponse{StopReason: domain.StopReason(msg.StopReason)}

	textSeen := false
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if !textSeen {
				out.Text = block.Text
				textSeen = true
			}
		case "tool_use":
			var input map[string]any
			if len(block.Input) > 0 {
				_ = json.Unmarshal(block.Input, &input)
			}
			out.ToolCalls = append(out.ToolCalls, domain.ToolCall{ID: block.ID, Name: block.Name, Input: input})
		}
	}

	return out
}
