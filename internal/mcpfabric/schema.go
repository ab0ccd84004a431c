// Package mcpfabric implements the MCP (Modular Capability Provider) fabric:
// the JSON-RPC 2.0 server skeleton every MCP exposes, the client handle the
// orchestrator uses to call them, and the discovery/readiness sequencing
// that wires a fleet of MCPs into one ToolCatalog.
package mcpfabric

import (
	"encoding/json"
	"strconv"
)

// FunctionSchema describes one callable function an MCP publishes. It is
// immutable after registration into a ToolCatalog.
type FunctionSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// MCPDescriptor is one entry in the launcher's registry: the single source
// of truth for what MCPs exist, keyed by Key.
type MCPDescriptor struct {
	Key              string `yaml:"key" json:"key"`
	DisplayName      string `yaml:"display_name" json:"display_name"`
	ScriptOrEndpoint string `yaml:"script_or_endpoint" json:"script_or_endpoint"`
	Port             int    `yaml:"port" json:"port"`
	Description      string `yaml:"description" json:"description"`
}

// BaseURL returns the HTTP base URL the orchestrator reaches this MCP on.
func (d MCPDescriptor) BaseURL() string {
	return "http://127.0.0.1:" + strconv.Itoa(d.Port)
}
