package mcpfabric

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// DispatchError is a structured error surfaced when a remote MCP call fails,
// carrying enough context for the agent loop to report it as a tool result
// (§4.3: "the call fails with a structured error that includes the MCP
// name, method, code, and message").
type DispatchError struct {
	MCPName string
	Method  string
	Code    int
	Message string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("mcp %s.%s failed (code %d): %s", e.MCPName, e.Method, e.Code, e.Message)
}

// MCPHandle is the runtime client state for one connected MCP (§3): base
// URL plus a monotonic request-id counter, starting at 1.
type MCPHandle struct {
	Name    string
	BaseURL string

	mu            sync.Mutex
	nextRequestID int64
	httpClient    *http.Client
}

// NewHandle creates a handle for an MCP reachable at baseURL. timeout
// bounds each call's/functions fetch's round trip.
func NewHandle(name, baseURL string, timeout time.Duration) *MCPHandle {
	return &MCPHandle{
		Name:          name,
		BaseURL:       baseURL,
		nextRequestID: 1,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// FetchFunctions performs GET {base}/functions and returns the schemas the
// MCP publishes.
func (h *MCPHandle) FetchFunctions(ctx context.Context) ([]FunctionSchema, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.BaseURL+"/functions", nil)
	if err != nil {
		return nil, fmt.Errorf("mcp %s: build functions request: %w", h.Name, err)
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mcp %s: functions request failed: %w", h.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mcp %s: functions returned HTTP %d", h.Name, resp.StatusCode)
	}
	var schemas []FunctionSchema
	if err := json.NewDecoder(resp.Body).Decode(&schemas); err != nil {
		return nil, fmt.Errorf("mcp %s: decode functions: %w", h.Name, err)
	}
	return schemas, nil
}

func (h *MCPHandle) nextID() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextRequestID
	h.nextRequestID++
	return id
}

// Call invokes method on the remote MCP with params and returns the raw
// JSON result. Any HTTP failure or JSON-RPC error response is surfaced as a
// *DispatchError.
func (h *MCPHandle) Call(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	id := h.nextID()
	reqBody := RPCRequest{
		JSONRPC: "2.0",
		ID:      json.RawMessage(fmt.Sprintf("%d", id)),
		Method:  method,
		Params:  params,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("mcp %s: marshal request: %w", h.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/mcp", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("mcp %s: build call request: %w", h.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, &DispatchError{MCPName: h.Name, Method: method, Code: ErrCodeInternal, Message: err.Error()}
	}
	defer resp.Body.Close()

	var rpcResp RPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, &DispatchError{MCPName: h.Name, Method: method, Code: ErrCodeInternal, Message: fmt.Sprintf("decode response: %v", err)}
	}
	if rpcResp.Error != nil {
		return nil, &DispatchError{MCPName: h.Name, Method: method, Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}
	return rpcResp.Result, nil
}
