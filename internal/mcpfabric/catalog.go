package mcpfabric

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// LocalToolHandler is a locally-implemented tool's dispatch target: given
// parsed JSON arguments, it returns the tool's textual result or an error.
type LocalToolHandler func(ctx context.Context, args json.RawMessage) (string, error)

// dispatchKind distinguishes the two ToolCatalog.DispatchTarget variants
// without reflection (§9 "no reflection is needed").
type dispatchKind int

const (
	dispatchLocal dispatchKind = iota
	dispatchRemote
)

// DispatchTarget is the closed variant {Local(fn), Remote(handle,method)}
// a catalog entry resolves to.
type DispatchTarget struct {
	kind   dispatchKind
	local  LocalToolHandler
	handle *MCPHandle
	method string
}

// IsLocal reports whether this target dispatches to a local handler.
func (t DispatchTarget) IsLocal() bool { return t.kind == dispatchLocal }

// catalogEntry is one name's binding: its published schema plus where calls
// to it go.
type catalogEntry struct {
	schema FunctionSchema
	target DispatchTarget
}

// ToolCatalog is the name-indexed union of local-tool handlers and remote
// MCP methods available to one agent (§3). Names are globally unique
// across the catalog: the first registration wins, later ones are rejected
// with a diagnostic. Built once per agent instance and immutable
// thereafter once construction finishes.
type ToolCatalog struct {
	mu      sync.RWMutex
	entries map[string]catalogEntry
}

// NewToolCatalog creates an empty catalog.
func NewToolCatalog() *ToolCatalog {
	return &ToolCatalog{entries: make(map[string]catalogEntry)}
}

// RegisterLocal binds name to a local handler under schema. Returns an
// error (not a panic) on name collision, per §3's dispatch-catalog invariant.
func (c *ToolCatalog) RegisterLocal(schema FunctionSchema, handler LocalToolHandler) error {
	return c.register(schema, DispatchTarget{kind: dispatchLocal, local: handler})
}

// RegisterRemote binds schema.Name to a remote MCP method. Returns an error
// on name collision.
func (c *ToolCatalog) RegisterRemote(schema FunctionSchema, handle *MCPHandle, method string) error {
	return c.register(schema, DispatchTarget{kind: dispatchRemote, handle: handle, method: method})
}

func (c *ToolCatalog) register(schema FunctionSchema, target DispatchTarget) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[schema.Name]; exists {
		return fmt.Errorf("tool catalog: %q already registered, rejecting duplicate", schema.Name)
	}
	c.entries[schema.Name] = catalogEntry{schema: schema, target: target}
	return nil
}

// Resolve returns the dispatch target for name, and whether it exists.
func (c *ToolCatalog) Resolve(name string) (DispatchTarget, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	return e.target, ok
}

// Schemas returns every published FunctionSchema, sorted by name — used to
// build the `tools` field of an LLM request.
func (c *ToolCatalog) Schemas() []FunctionSchema {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]FunctionSchema, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.schema)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dispatch invokes name with args, resolving to the local handler or the
// owning MCP handle's remote call as appropriate (§4.4d). isLocal tells the
// caller whether the result came from a local tool — only local-tool
// results are eligible for the GUI-command short-circuit (§4.4e).
func (c *ToolCatalog) Dispatch(ctx context.Context, name string, args json.RawMessage) (result string, isLocal bool, err error) {
	target, ok := c.Resolve(name)
	if !ok {
		return "", false, fmt.Errorf("tool not available to this agent")
	}
	if target.IsLocal() {
		out, err := target.local(ctx, args)
		return out, true, err
	}
	out, err := target.handle.Call(ctx, target.method, args)
	if err != nil {
		return "", false, err
	}
	return string(out), false, nil
}
