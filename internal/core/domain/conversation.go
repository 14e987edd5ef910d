package domain

import (
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// Role identifies the author of a conversation message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a closed sum type over the three conversation message shapes:
// TextMessage, ToolRequestMessage and ToolResultMessage.
type Message interface {
	MessageRole() Role
	isMessage()
}

// TextMessage carries plain text from the user or the assistant
type TextMessage struct {
	Role    Role
	Content string
}

// ToolRequestMessage is an assistant turn requesting tool invocations
type ToolRequestMessage struct {
	Calls []ToolCall
}

// ToolResultMessage is a user turn carrying the results of tool invocations
type ToolResultMessage struct {
	Results []ToolResult
}

func (m TextMessage) MessageRole() Role        { return m.Role }
func (m ToolRequestMessage) MessageRole() Role { return RoleAssistant }
func (m ToolResultMessage) MessageRole() Role  { return RoleUser }

func (TextMessage) isMessage()        {}
func (ToolRequestMessage) isMessage() {}
func (ToolResultMessage) isMessage()  {}

// ToolCall is a named tool invocation requested by the model.
// ID is opaque and echoed back in the matching ToolResult.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolResult is the outcome of one ToolCall
type ToolResult struct {
	CallID  string `json:"tool_use_id"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// ToolDefinition is the declarative schema advertised to the model
type ToolDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"input_schema"`
}

// StopReason explains why the model stopped generating
type StopReason string

const (
	StopReasonEndTurn   StopReason = "end_turn"
	StopReasonToolUse   StopReason = "tool_use"
	StopReasonMaxTokens StopReason = "max_tokens"
)

// ModelRequest is one call to the language model
type ModelRequest struct {
	System      string
	Messages    []Message
	Tools       []ToolDefinition // nil disables tool use
	MaxTokens   int
	Temperature float64
}

// ModelResponse is the model's reply: either terminal text or tool calls
type ModelResponse struct {
	StopReason StopReason
	Text       string // first text block, empty if none
	ToolCalls  []ToolCall
}

// RequestsTools reports whether the response asks for tool invocations
func (r *ModelResponse) RequestsTools() bool {
	return r.StopReason == StopReasonToolUse && len(r.ToolCalls) > 0
}

// Exchange is one question/answer pair kept in conversation history
type Exchange struct {
	Query     string `json:"query"`
	Answer    string `json:"answer"`
	CreatedAt int64  `json:"created_at"`
}

// FormatHistory renders exchanges as alternating "User:"/"Assistant:" lines.
// Returns "" when there is no history.
func FormatHistory(exchanges []Exchange) string {
	if len(exchanges) == 0 {
		return ""
	}
	lines := make([]string, 0, len(exchanges)*2)
	for _, e := range exchanges {
		lines = append(lines, "User: "+e.Query, "Assistant: "+e.Answer)
	}
	return strings.Join(lines, "\n")
}
