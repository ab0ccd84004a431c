package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/pocketomega/rpg-assistant/internal/llm"
	"github.com/pocketomega/rpg-assistant/internal/mcpfabric"
)

// DelegationConfig configures the orchestrator's execute_rpg_task local
// tool (§4.4 Hierarchical delegation).
type DelegationConfig struct {
	Provider       llm.Provider
	Model          string
	SubAgentPrompt string
	Discovery      *mcpfabric.Discovery
	RPGMCPKey      string
	Logger         Logger
}

// ExecuteRPGTaskSchema is the FunctionSchema for the execute_rpg_task local
// tool, the orchestrator's sole delegation mechanism.
func ExecuteRPGTaskSchema() mcpfabric.FunctionSchema {
	return mcpfabric.FunctionSchema{
		Name:        "execute_rpg_task",
		Description: "Delegate a task about the player's character or the game world to a restricted RPG sub-agent, and return its answer.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"task_description": {"type": "string", "description": "Plain-language description of the RPG task to perform."}
			},
			"required": ["task_description"]
		}`),
	}
}

// NewExecuteRPGTaskHandler builds the local-tool handler for
// execute_rpg_task: on each call it constructs a fresh sub-agent instance
// with (i) a different system prompt, (ii) an allow-list containing only
// the RPG MCP, and (iii) an empty local-tool set, runs it synchronously
// with a single user message, and wraps its textual result in a
// gui_tool:"display_text" envelope (§4.4).
func NewExecuteRPGTaskHandler(cfg DelegationConfig) mcpfabric.LocalToolHandler {
	return func(ctx context.Context, args json.RawMessage) (string, error) {
		var in struct {
			TaskDescription string `json:"task_description"`
		}
		if err := json.Unmarshal(args, &in); err != nil {
			return "", fmt.Errorf("execute_rpg_task: invalid arguments: %w", err)
		}

		catalog := mcpfabric.NewToolCatalog()
		if h, ok := cfg.Discovery.Handle(cfg.RPGMCPKey); ok {
			for _, schema := range cfg.Discovery.Schemas(cfg.RPGMCPKey) {
				if err := catalog.RegisterRemote(schema, h, schema.Name); err != nil {
					log.Printf("[Agent] sub-agent catalog: %v", err)
				}
			}
		} else {
			log.Printf("[Agent] execute_rpg_task: RPG mcp key %q not discovered", cfg.RPGMCPKey)
		}

		sub := New(cfg.Provider, cfg.Model, cfg.SubAgentPrompt, catalog, cfg.Logger)
		result, err := sub.Run(ctx, []llm.ConversationMessage{
			{Role: llm.RoleUser, Content: in.TaskDescription},
		})
		if err != nil {
			return "", fmt.Errorf("execute_rpg_task: sub-agent failed: %w", err)
		}

		switch result.Kind {
		case ResultGuiCommand:
			// The sub-agent already produced a structured reply; forward
			// it unwrapped rather than double-wrapping.
			return string(result.GUI), nil
		default:
			return string(WrapDisplayText(result.Text)), nil
		}
	}
}
