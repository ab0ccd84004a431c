package mcpfabric

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// registryFile is the on-disk shape of an MCP registry YAML file.
type registryFile struct {
	MCPs []MCPDescriptor `yaml:"mcps"`
}

// LoadDescriptorRegistry reads the launcher's MCP registry file (§6.3/§6.4):
// the single source of truth for what MCPs exist, keyed by MCPDescriptor.Key.
func LoadDescriptorRegistry(path string) (map[string]MCPDescriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mcp registry %s: %w", path, err)
	}
	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse mcp registry %s: %w", path, err)
	}
	out := make(map[string]MCPDescriptor, len(file.MCPs))
	for _, d := range file.MCPs {
		if d.Key == "" {
			return nil, fmt.Errorf("mcp registry %s: descriptor missing key", path)
		}
		out[d.Key] = d
	}
	return out, nil
}

// ParseActiveMCPs splits the ACTIVE_MCPS contract (§6.3): a
// comma-separated list of registry keys, e.g. "files,web". Empty entries
// from stray commas or surrounding whitespace are dropped.
func ParseActiveMCPs(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SelectActive resolves the ACTIVE_MCPS subset against the full registry,
// returning the matching descriptors in the order keys were listed. An
// unknown key is a startup error: the launcher/orchestrator contract
// assumes ACTIVE_MCPS only ever names registry entries that exist.
func SelectActive(registry map[string]MCPDescriptor, keys []string) ([]MCPDescriptor, error) {
	out := make([]MCPDescriptor, 0, len(keys))
	for _, k := range keys {
		d, ok := registry[k]
		if !ok {
			return nil, fmt.Errorf("ACTIVE_MCPS names unknown mcp key %q", k)
		}
		out = append(out, d)
	}
	return out, nil
}
