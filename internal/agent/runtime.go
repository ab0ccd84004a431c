// Package agent implements the Agent Runtime (spec.md §4.4): the bounded
// tool-calling loop shared by the orchestrator and its sub-agents. The two
// differ only in (system prompt, tool catalog, allow-list) — never in the
// loop itself.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pocketomega/rpg-assistant/internal/llm"
	"github.com/pocketomega/rpg-assistant/internal/mcpfabric"
)

// MaxAgentTurns bounds one Agent.Run call (§4.4.2).
const MaxAgentTurns = 10

// FallbackMessage is returned when the turn budget is exhausted without a
// final answer (§4.4.3).
const FallbackMessage = "I could not complete this task within the available turns. Please try rephrasing or breaking it into smaller steps."

// guiToolKey is the top-level JSON key that marks a local tool's result as
// a structured final answer rather than a value to feed back to the model
// (§4.4e).
const guiToolKey = "gui_tool"

// ResultKind discriminates Agent.Run's tagged-variant return value (§9:
// "the agent loop's return is a tagged variant FinalText | GuiCommand |
// Fallback"; do not collapse it to a plain string).
type ResultKind int

const (
	ResultFinalText ResultKind = iota
	ResultGuiCommand
	ResultFallback
)

// Result is the outcome of one Agent.Run call.
type Result struct {
	Kind ResultKind
	Text string          // set for ResultFinalText and ResultFallback
	GUI  json.RawMessage // set for ResultGuiCommand: the raw {"gui_tool": ...} object
}

// Logger receives a record of every LLM call and tool dispatch. Optional;
// an Agent with a nil Logger simply doesn't log.
type Logger interface {
	LogTurn(turn int, assistantContent string, toolCalls []llm.ToolCall)
	LogToolCall(name string, params json.RawMessage, result string, dispatchErr error)
}

// Agent is one instance of the hierarchical tool-calling loop: an
// orchestrator or a sub-agent, depending only on how it was constructed
// (§4.4 "Orchestrator vs. sub-agent distinction lives entirely in (prompt,
// allow-list, local-tool set). The runtime is identical.").
type Agent struct {
	Provider     llm.Provider
	Model        string
	SystemPrompt string
	Catalog      *mcpfabric.ToolCatalog
	Logger       Logger
}

// New constructs an Agent. catalog must already be built (scoped to this
// agent's allow-list and local tools) and is immutable thereafter.
func New(provider llm.Provider, model, systemPrompt string, catalog *mcpfabric.ToolCatalog, logger Logger) *Agent {
	return &Agent{
		Provider:     provider,
		Model:        model,
		SystemPrompt: systemPrompt,
		Catalog:      catalog,
		Logger:       logger,
	}
}

// Run executes the bounded tool-calling loop over history (prior turns'
// user/assistant messages; the system prompt is prepended here and is
// always index 0, per §3).
func (a *Agent) Run(ctx context.Context, history []llm.ConversationMessage) (Result, error) {
	messages := make([]llm.ConversationMessage, 0, len(history)+1)
	messages = append(messages, llm.ConversationMessage{Role: llm.RoleSystem, Content: a.SystemPrompt})
	messages = append(messages, history...)

	tools := toToolDefinitions(a.Catalog.Schemas())

	for turn := 0; turn < MaxAgentTurns; turn++ {
		resp, err := a.Provider.ChatCompletions(ctx, a.Model, messages, tools, llm.ToolChoiceAuto)
		if err != nil {
			return Result{}, fmt.Errorf("agent turn %d: llm call failed: %w", turn, err)
		}

		if a.Logger != nil {
			a.Logger.LogTurn(turn, resp.Content, resp.ToolCalls)
		}

		// 2b: textual final answer, no tool calls.
		if len(resp.ToolCalls) == 0 {
			if strings.TrimSpace(resp.Content) != "" {
				return Result{Kind: ResultFinalText, Text: resp.Content}, nil
			}
			// Empty content and no tool calls: nothing more this model can
			// do this turn. Treat as a (short) final answer rather than
			// silently looping to the budget.
			return Result{Kind: ResultFinalText, Text: resp.Content}, nil
		}

		// 2c: append the assistant message including tool_calls.
		messages = append(messages, llm.ConversationMessage{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			resultText, isLocal, dispatchErr := a.dispatch(ctx, tc)

			if a.Logger != nil {
				a.Logger.LogToolCall(tc.Name, tc.Arguments, resultText, dispatchErr)
			}

			if dispatchErr != nil {
				resultText = fmt.Sprintf(`{"error": %q}`, dispatchErr.Error())
			} else if isLocal {
				// 2e: GUI-command short-circuit.
				if gui, ok := extractGUICommand(resultText); ok {
					return Result{Kind: ResultGuiCommand, GUI: gui}, nil
				}
			}

			messages = append(messages, llm.ConversationMessage{
				Role:       llm.RoleTool,
				Content:    resultText,
				ToolCallID: tc.ID,
				Name:       tc.Name,
			})
		}
	}

	return Result{Kind: ResultFallback, Text: FallbackMessage}, nil
}

// dispatch resolves and invokes one tool call (§4.4d), handling malformed
// JSON arguments and unknown names without aborting the turn.
func (a *Agent) dispatch(ctx context.Context, tc llm.ToolCall) (result string, isLocal bool, dispatchErr error) {
	if len(tc.Arguments) > 0 && !json.Valid(tc.Arguments) {
		return "", false, fmt.Errorf("malformed JSON arguments for %s: %s", tc.Name, tc.Arguments)
	}
	return a.Catalog.Dispatch(ctx, tc.Name, tc.Arguments)
}

// extractGUICommand reports whether result is a JSON object carrying a
// top-level "gui_tool" key (§4.4e); if so it returns the object verbatim.
func extractGUICommand(result string) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(result)
	if trimmed == "" || trimmed[0] != '{' {
		return nil, false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &probe); err != nil {
		return nil, false
	}
	if _, ok := probe[guiToolKey]; !ok {
		return nil, false
	}
	return json.RawMessage(trimmed), true
}

func toToolDefinitions(schemas []mcpfabric.FunctionSchema) []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, len(schemas))
	for i, s := range schemas {
		defs[i] = llm.ToolDefinition{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.Parameters,
		}
	}
	return defs
}

// WrapDisplayText builds the gui_tool:"display_text" envelope hierarchical
// delegation wraps a sub-agent's textual result in (§4.4's delegation
// description).
func WrapDisplayText(text string) json.RawMessage {
	type params struct {
		Text string `json:"text"`
	}
	type envelope struct {
		GUITool string `json:"gui_tool"`
		Params  params `json:"params"`
	}
	raw, err := json.Marshal(envelope{GUITool: "display_text", Params: params{Text: text}})
	if err != nil {
		// json.Marshal of a struct of plain strings cannot fail.
		return json.RawMessage(`{"gui_tool":"display_text","params":{"text":""}}`)
	}
	return raw
}
