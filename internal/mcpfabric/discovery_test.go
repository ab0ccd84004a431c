package mcpfabric

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestWaitReady_EmptyHandlesReturnsImmediately(t *testing.T) {
	if err := WaitReady(context.Background(), nil); err != nil {
		t.Fatalf("WaitReady with no handles should succeed, got %v", err)
	}
}

func TestWaitReady_SucceedsOnceAllRespond(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]FunctionSchema{})
	}))
	defer srv.Close()

	h := NewHandle("ready", srv.URL, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := WaitReady(ctx, []*MCPHandle{h}); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
}

func TestWaitReady_FailsWhenMCPNeverReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	h := NewHandle("stuck", srv.URL, 50*time.Millisecond)

	// Avoid waiting the real 30s deadline: a 600ms context lets the poll
	// loop retry at least once and then ends it through the ctx.Done
	// branch, so either context.DeadlineExceeded or the deadline error
	// naming the MCP is accepted.
	ctx, cancel := context.WithTimeout(context.Background(), 600*time.Millisecond)
	defer cancel()
	err := WaitReady(ctx, []*MCPHandle{h})
	if err == nil {
		t.Fatal("expected WaitReady to return an error")
	}
	if err != context.DeadlineExceeded && !strings.Contains(err.Error(), "stuck") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewDiscovery_FetchesSchemasForEveryDescriptor(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		json.NewEncoder(w).Encode([]FunctionSchema{{Name: "tool_a"}})
	}))
	defer srv.Close()

	port, err := strconv.Atoi(strings.TrimPrefix(srv.URL, "http://127.0.0.1:"))
	if err != nil {
		t.Skipf("could not parse test server port from %s: %v", srv.URL, err)
	}
	descriptors := []MCPDescriptor{{Key: "files", Port: port}}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	disc, err := NewDiscovery(ctx, descriptors, time.Second)
	if err != nil {
		t.Fatalf("NewDiscovery: %v", err)
	}
	if keys := disc.Keys(); len(keys) != 1 || keys[0] != "files" {
		t.Fatalf("Keys() = %v, want [files]", keys)
	}
	if _, ok := disc.Handle("files"); !ok {
		t.Fatal("expected a handle for files")
	}
	schemas := disc.Schemas("files")
	if len(schemas) != 1 || schemas[0].Name != "tool_a" {
		t.Fatalf("unexpected schemas: %+v", schemas)
	}
}
