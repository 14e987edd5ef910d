package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
)

// Ensure OpenAIModel implements ModelClient
var _ driven.ModelClient = (*OpenAIModel)(nil)

// OpenAIModel implements ModelClient using the chat completions API with
// function tools. Ollama is served through the same client via its /v1 API.
type OpenAIModel struct {
	client     *openai.Client
	httpClient *http.Client
	model      string
}

// NewOpenAIModel creates a chat model client for OpenAI
func NewOpenAIModel(apiKey, model, baseURL string) (driven.ModelClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return newOpenAICompatibleModel(apiKey, model, baseURL), nil
}

// NewOllamaModel creates a chat model client for a local Ollama server
func NewOllamaModel(baseURL, model string) (driven.ModelClient, error) {
	if model == "" {
		model = "llama3.1"
	}
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return newOpenAICompatibleModel("ollama", model, ollamaV1(baseURL)), nil
}

func newOpenAICompatibleModel(apiKey, model, baseURL string) *OpenAIModel {
	httpClient := &http.Client{Timeout: 120 * time.Second}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	cfg.HTTPClient = httpClient

	return &OpenAIModel{
		client:     openai.NewClientWithConfig(cfg),
		httpClient: httpClient,
		model:      model,
	}
}

// CreateMessage runs one chat completion
func (m *OpenAIModel) CreateMessage(ctx context.Context, req *domain.ModelRequest) (*domain.ModelResponse, error) {
	messages, err := toOpenAIMessages(req.System, req.Messages)
	if err != nil {
		return nil, err
	}

	temperature := float32(req.Temperature)
	if temperature == 0 {
		// The client drops a zero temperature from the payload
		temperature = math.SmallestNonzeroFloat32
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       m.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: temperature,
	}
	for _, def := range req.Tools {
		chatReq.Tools = append(chatReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.InputSchema,
			},
		})
	}

	resp, err := m.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return fromOpenAIChoice(resp.Choices[0]), nil
}

// Model returns the model name being used
func (m *OpenAIModel) Model() string {
	return m.model
}

// Ping verifies the API is reachable and the key is accepted
func (m *OpenAIModel) Ping(ctx context.Context) error {
	if _, err := m.client.ListModels(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	return nil
}

// Close releases resources held by the client
func (m *OpenAIModel) Close() error {
	m.httpClient.CloseIdleConnections()
	return nil
}

func toOpenAIMessages(system string, conversation []domain.Message) ([]openai.ChatCompletionMessage, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(conversation)+1)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}

	for _, msg := range conversation {
		switch msg := msg.(type) {
		case domain.TextMessage:
			role := openai.ChatMessageRoleUser
			if msg.Role == domain.RoleAssistant {
				role = openai.ChatMessageRoleAssistant
			}
			messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})

		case domain.ToolRequestMessage:
			calls := make([]openai.ToolCall, 0, len(msg.Calls))
			for _, call := range msg.Calls {
				args, err := json.Marshal(call.Input)
				if err != nil {
					return nil, fmt.Errorf("failed to marshal arguments of %s: %w", call.Name, err)
				}
				calls = append(calls, openai.ToolCall{
					ID:       call.ID,
					Type:     openai.ToolTypeFunction,
					Function: openai.FunctionCall{Name: call.Name, Arguments: string(args)},
				})
			}
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, ToolCalls: calls})

		case domain.ToolResultMessage:
			// One tool message per result; there is no error flag in this API
			for _, result := range msg.Results {
				messages = append(messages, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    result.Content,
					ToolCallID: result.CallID,
				})
			}

		default:
			return nil, fmt.Errorf("unsupported message type %T", msg)
		}
	}

	return messages, nil
}

func fromOpenAIChoice(choice openai.ChatCompletionChoice) *domain.ModelResponse {
	resp := &domain.ModelResponse{Text: choice.Message.Content}

	for _, call := range choice.Message.ToolCalls {
		var input map[string]any
		if call.Function.Arguments != "" {
			// Malformed arguments leave input nil; the tool rejects it
			_ = json.Unmarshal([]byte(call.Function.Arguments), &input)
		}
		resp.ToolCalls = append(resp.ToolCalls, domain.ToolCall{
			ID:    call.ID,
			Name:  call.Function.Name,
			Input: input,
		})
	}

	switch {
	case choice.FinishReason == openai.FinishReasonToolCalls || len(resp.ToolCalls) > 0:
		resp.StopReason = domain.StopReasonToolUse
	case choice.FinishReason == openai.FinishReasonLength:
		resp.StopReason = domain.StopReasonMaxTokens
	default:
		resp.StopReason = domain.StopReasonEndTurn
	}
	return resp
}
