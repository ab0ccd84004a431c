// Package llm defines the conversation and tool-calling types shared by the
// Agent Runtime and any LLM backend, and the LLMProvider interface the
// runtime is built against.
package llm

import (
	"context"
	"encoding/json"
)

// Role constants for ConversationMessage.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a single tool invocation requested by the assistant.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ConversationMessage is one entry in the ordered conversation sequence fed
// to the LLM. The system prompt is always index 0. Every message with
// Role == RoleTool must carry a ToolCallID matching a ToolCall.ID from an
// earlier RoleAssistant message (spec.md §3 invariant).
type ConversationMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"` // tool name, set on RoleTool messages
}

// ToolDefinition describes a callable tool for LLM tool-choice prompting.
// Shares its shape with mcpfabric.FunctionSchema (§3): {name, description,
// parameters}.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolChoice selects how the model may use tools. "auto" lets the model
// decide whether to call a tool at all (spec.md §4.4.a).
type ToolChoice string

const ToolChoiceAuto ToolChoice = "auto"

// CompletionResult is the model's response to one chat_completions call.
// A model either answers in text (Content non-empty, ToolCalls empty) or
// asks to invoke tools (ToolCalls non-empty).
type CompletionResult struct {
	Content   string
	ToolCalls []ToolCall
}

// Provider is the injected LLM capability (spec.md §6.6): any
// OpenAI-compatible chat-completions endpoint with tool-calling.
type Provider interface {
	// ChatCompletions sends the conversation and tool catalog to the model
	// and returns its response. tools may be empty (no tools available).
	ChatCompletions(ctx context.Context, model string, messages []ConversationMessage, tools []ToolDefinition, toolChoice ToolChoice) (CompletionResult, error)

	// Name returns the provider's identifier, for logging.
	Name() string
}
