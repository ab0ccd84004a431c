package mcpfabric

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchFunctions_DecodesSchemas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/functions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]FunctionSchema{
			{Name: "read_file", Description: "reads a file"},
		})
	}))
	defer srv.Close()

	h := NewHandle("files", srv.URL, time.Second)
	schemas, err := h.FetchFunctions(context.Background())
	if err != nil {
		t.Fatalf("FetchFunctions: %v", err)
	}
	if len(schemas) != 1 || schemas[0].Name != "read_file" {
		t.Fatalf("unexpected schemas: %+v", schemas)
	}
}

func TestFetchFunctions_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := NewHandle("files", srv.URL, time.Second)
	if _, err := h.FetchFunctions(context.Background()); err == nil {
		t.Fatal("expected an error for a non-200 /functions response")
	}
}

func TestCall_ReturnsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req RPCRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Method != "read_file" {
			t.Errorf("method = %q, want read_file", req.Method)
		}
		resp := newResultResponse(req.ID, json.RawMessage(`"contents"`))
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	h := NewHandle("files", srv.URL, time.Second)
	result, err := h.Call(context.Background(), "read_file", json.RawMessage(`{"path":"a.txt"}`))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(result) != `"contents"` {
		t.Fatalf("result = %s, want \"contents\"", result)
	}
}

func TestCall_RequestIDsAreMonotonic(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req RPCRequest
		json.NewDecoder(r.Body).Decode(&req)
		seen = append(seen, string(req.ID))
		json.NewEncoder(w).Encode(newResultResponse(req.ID, json.RawMessage(`null`)))
	}))
	defer srv.Close()

	h := NewHandle("files", srv.URL, time.Second)
	for i := 0; i < 3; i++ {
		if _, err := h.Call(context.Background(), "noop", nil); err != nil {
			t.Fatalf("Call %d: %v", i, err)
		}
	}
	if len(seen) != 3 || seen[0] == seen[1] || seen[1] == seen[2] {
		t.Fatalf("expected 3 distinct monotonic ids, got %v", seen)
	}
}

func TestCall_RemoteErrorBecomesDispatchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req RPCRequest
		json.NewDecoder(r.Body).Decode(&req)
		resp := newErrorResponse(req.ID, ErrCodeApplicationBase-1, "file not found")
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	h := NewHandle("files", srv.URL, time.Second)
	_, err := h.Call(context.Background(), "read_file", nil)
	if err == nil {
		t.Fatal("expected a DispatchError")
	}
	dispatchErr, ok := err.(*DispatchError)
	if !ok {
		t.Fatalf("error is %T, want *DispatchError", err)
	}
	if dispatchErr.MCPName != "files" || dispatchErr.Method != "read_file" || dispatchErr.Message != "file not found" {
		t.Fatalf("unexpected DispatchError: %+v", dispatchErr)
	}
}

func TestCall_UnreachableServerIsDispatchError(t *testing.T) {
	h := NewHandle("files", "http://127.0.0.1:1", 200*time.Millisecond)
	_, err := h.Call(context.Background(), "read_file", nil)
	if err == nil {
		t.Fatal("expected an error calling an unreachable mcp")
	}
	if _, ok := err.(*DispatchError); !ok {
		t.Fatalf("error is %T, want *DispatchError", err)
	}
}
