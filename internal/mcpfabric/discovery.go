package mcpfabric

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// DiscoveryPollInterval and DiscoveryDeadline bound the readiness poll
// (§4.3): the orchestrator must wait until every configured MCP answers
// GET /functions with HTTP 200, polling at >=500ms intervals, up to 30s.
const (
	DiscoveryPollInterval = 500 * time.Millisecond
	DiscoveryDeadline     = 30 * time.Second
	discoveryCallTimeout  = 5 * time.Second
)

// WaitReady polls every handle's /functions endpoint until all respond or
// DiscoveryDeadline elapses. On timeout it returns a fatal error naming the
// MCPs that never became ready.
func WaitReady(ctx context.Context, handles []*MCPHandle) error {
	if len(handles) == 0 {
		return nil
	}

	deadline := time.Now().Add(DiscoveryDeadline)
	ready := make(map[string]bool, len(handles))

	for {
		allReady := true
		for _, h := range handles {
			if ready[h.Name] {
				continue
			}
			callCtx, cancel := context.WithTimeout(ctx, discoveryCallTimeout)
			_, err := h.FetchFunctions(callCtx)
			cancel()
			if err != nil {
				allReady = false
				continue
			}
			ready[h.Name] = true
		}
		if allReady {
			return nil
		}
		if time.Now().After(deadline) {
			var missing []string
			for _, h := range handles {
				if !ready[h.Name] {
					missing = append(missing, h.Name)
				}
			}
			return fmt.Errorf("mcp discovery timed out after %s, not ready: %s", DiscoveryDeadline, strings.Join(missing, ", "))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(DiscoveryPollInterval):
		}
	}
}

// Discovery is the fabric-wide result of discovering every active MCP: its
// handle and the function schemas it published. An Agent builds its own
// scoped ToolCatalog by selecting a subset of Discovery's keys (its
// allow-list) and registering their schemas as remote dispatch targets.
type Discovery struct {
	handles map[string]*MCPHandle
	schemas map[string][]FunctionSchema
	keys    []string // registration order, for deterministic iteration
}

// NewDiscovery waits for every descriptor's MCP to become ready (§4.3) and
// fetches its published functions, in one step. Returns a fatal error
// naming any MCP that never became ready.
func NewDiscovery(ctx context.Context, descriptors []MCPDescriptor, callTimeout time.Duration) (*Discovery, error) {
	handles := make(map[string]*MCPHandle, len(descriptors))
	list := make([]*MCPHandle, 0, len(descriptors))
	keys := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		h := NewHandle(d.Key, d.BaseURL(), callTimeout)
		handles[d.Key] = h
		list = append(list, h)
		keys = append(keys, d.Key)
	}

	if err := WaitReady(ctx, list); err != nil {
		return nil, err
	}

	schemas := make(map[string][]FunctionSchema, len(descriptors))
	for _, h := range list {
		callCtx, cancel := context.WithTimeout(ctx, discoveryCallTimeout)
		s, err := h.FetchFunctions(callCtx)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", h.Name, err)
		}
		schemas[h.Name] = s
		log.Printf("[MCP] %s: discovered %d function(s)", h.Name, len(s))
	}

	return &Discovery{handles: handles, schemas: schemas, keys: keys}, nil
}

// Keys returns every discovered MCP key, in registration order.
func (d *Discovery) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Handle returns the MCP handle for key, if discovered.
func (d *Discovery) Handle(key string) (*MCPHandle, bool) {
	h, ok := d.handles[key]
	return h, ok
}

// Schemas returns the function schemas key's MCP published.
func (d *Discovery) Schemas(key string) []FunctionSchema {
	return d.schemas[key]
}
