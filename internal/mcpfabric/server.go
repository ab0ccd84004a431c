package mcpfabric

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// MethodHandler implements one JSON-RPC method an MCP exposes. It returns a
// value JSON-marshalable into the response's result field, or an error.
// Returning an *RPCError lets the handler pick a specific JSON-RPC error
// code (e.g. ErrCodeInvalidParams); any other error is reported as
// ErrCodeApplicationBase.
type MethodHandler func(params json.RawMessage) (any, error)

// Server is the reusable MCP server skeleton (§4.2): a GET /functions
// introspection endpoint plus a POST /mcp JSON-RPC 2.0 dispatcher. A
// concrete MCP embeds a Server, registers its methods, and calls
// ListenAndServe.
type Server struct {
	schemas []FunctionSchema
	methods map[string]MethodHandler
}

// NewServer creates an empty MCP server skeleton.
func NewServer() *Server {
	return &Server{methods: make(map[string]MethodHandler)}
}

// RegisterMethod publishes a function under name with the given schema and
// binds it to handler. Call before ListenAndServe; not safe to call
// concurrently with requests being served.
func (s *Server) RegisterMethod(schema FunctionSchema, handler MethodHandler) {
	s.schemas = append(s.schemas, schema)
	s.methods[schema.Name] = handler
}

// Handler returns the http.Handler implementing /functions and /mcp, for
// embedding into a larger mux or passing directly to http.ListenAndServe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/functions", s.handleFunctions)
	mux.HandleFunc("/mcp", s.handleRPC)
	return mux
}

// ListenAndServe binds addr (e.g. ":8090") and serves /functions and /mcp
// until the process exits or the listener errors.
func (s *Server) ListenAndServe(addr string) error {
	log.Printf("[MCP] listening on %s (%d function(s))", addr, len(s.schemas))
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleFunctions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.schemas); err != nil {
		log.Printf("[MCP] /functions encode error: %v", err)
	}
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, newErrorResponse(nil, ErrCodeInvalidRequest, fmt.Sprintf("malformed request: %v", err)))
		return
	}
	if req.Method == "" {
		s.writeResponse(w, http.StatusBadRequest, newErrorResponse(req.ID, ErrCodeInvalidRequest, "missing method"))
		return
	}

	handler, ok := s.methods[req.Method]
	if !ok {
		s.writeResponse(w, http.StatusBadRequest, newErrorResponse(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method)))
		return
	}

	result, err := handler(req.Params)
	if err != nil {
		if rpcErr, ok := err.(*RPCError); ok {
			status := http.StatusBadRequest
			if rpcErr.Code == ErrCodeInternal {
				status = http.StatusInternalServerError
			}
			s.writeResponse(w, status, RPCResponse{JSONRPC: "2.0", ID: req.ID, Error: rpcErr})
			return
		}
		s.writeResponse(w, http.StatusInternalServerError, newErrorResponse(req.ID, ErrCodeApplicationBase, err.Error()))
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		s.writeResponse(w, http.StatusInternalServerError, newErrorResponse(req.ID, ErrCodeInternal, fmt.Sprintf("result encode failed: %v", err)))
		return
	}
	s.writeResponse(w, http.StatusOK, newResultResponse(req.ID, raw))
}

func (s *Server) writeResponse(w http.ResponseWriter, status int, resp RPCResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[MCP] response encode error: %v", err)
	}
}
