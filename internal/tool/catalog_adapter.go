package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pocketomega/rpg-assistant/internal/mcpfabric"
)

// RegisterInto adapts every tool in the registry into catalog as a local
// tool, so the Agent Runtime can dispatch to generic local tools (shell,
// file, http, search, time) the same way it dispatches to MCP functions.
func (r *Registry) RegisterInto(catalog *mcpfabric.ToolCatalog) error {
	for _, t := range r.List() {
		schema := mcpfabric.FunctionSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.InputSchema(),
		}
		if err := catalog.RegisterLocal(schema, adaptHandler(t)); err != nil {
			return fmt.Errorf("registering local tool %q: %w", t.Name(), err)
		}
	}
	return nil
}

// adaptHandler bridges Tool.Execute's (ToolResult, error) return to the
// (string, error) shape mcpfabric.LocalToolHandler expects, surfacing a
// ToolResult.Error as a Go error so the Agent Runtime logs it uniformly
// with remote MCP dispatch failures.
func adaptHandler(t Tool) mcpfabric.LocalToolHandler {
	return func(ctx context.Context, args json.RawMessage) (string, error) {
		res, err := t.Execute(ctx, args)
		if err != nil {
			return "", err
		}
		if res.Error != "" {
			return "", fmt.Errorf("%s", res.Error)
		}
		return res.Output, nil
	}
}
