package mcpfabric

import (
	"context"
	"encoding/json"
	"testing"
)

func TestToolCatalogRejectsDuplicateName(t *testing.T) {
	c := NewToolCatalog()
	schema := FunctionSchema{Name: "read_file", Description: "reads a file"}

	if err := c.RegisterLocal(schema, func(ctx context.Context, args json.RawMessage) (string, error) {
		return "first", nil
	}); err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}

	err := c.RegisterLocal(schema, func(ctx context.Context, args json.RawMessage) (string, error) {
		return "second", nil
	})
	if err == nil {
		t.Fatal("expected second registration of the same name to be rejected")
	}

	out, isLocal, dispatchErr := c.Dispatch(context.Background(), "read_file", nil)
	if dispatchErr != nil {
		t.Fatalf("dispatch failed: %v", dispatchErr)
	}
	if !isLocal {
		t.Fatal("expected a local dispatch target")
	}
	if out != "first" {
		t.Fatalf("first registration should win, got %q", out)
	}
}

func TestToolCatalogDispatchUnknownName(t *testing.T) {
	c := NewToolCatalog()
	_, _, err := c.Dispatch(context.Background(), "nonexistent", nil)
	if err == nil {
		t.Fatal("expected an error dispatching an unregistered tool name")
	}
}

func TestToolCatalogSchemasSortedByName(t *testing.T) {
	c := NewToolCatalog()
	names := []string{"zeta", "alpha", "mid"}
	for _, n := range names {
		if err := c.RegisterLocal(FunctionSchema{Name: n}, func(ctx context.Context, args json.RawMessage) (string, error) {
			return "", nil
		}); err != nil {
			t.Fatalf("register %s: %v", n, err)
		}
	}
	schemas := c.Schemas()
	if len(schemas) != 3 {
		t.Fatalf("expected 3 schemas, got %d", len(schemas))
	}
	if schemas[0].Name != "alpha" || schemas[1].Name != "mid" || schemas[2].Name != "zeta" {
		t.Fatalf("expected sorted order, got %v", schemas)
	}
}
