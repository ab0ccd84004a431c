package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pocketomega/rpg-assistant/internal/llm"
	openailib "github.com/sashabaranov/go-openai"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &Config{APIKey: "sk-test", Model: "gpt-4o", BaseURL: srv.URL, MaxRetries: 0, HTTPTimeout: 5}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClient_RejectsNilConfig(t *testing.T) {
	if _, err := NewClient(nil); err == nil {
		t.Fatal("expected an error for a nil config")
	}
}

func TestNewClient_RejectsInvalidConfig(t *testing.T) {
	if _, err := NewClient(&Config{}); err == nil {
		t.Fatal("expected an error for a config missing APIKey/Model")
	}
}

func TestChatCompletions_ReturnsTextContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		resp := openailib.ChatCompletionResponse{
			Choices: []openailib.ChatCompletionChoice{
				{Message: openailib.ChatCompletionMessage{Role: "assistant", Content: "hello there"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})

	result, err := client.ChatCompletions(context.Background(), "gpt-4o", []llm.ConversationMessage{
		{Role: llm.RoleUser, Content: "hi"},
	}, nil, llm.ToolChoiceAuto)
	if err != nil {
		t.Fatalf("ChatCompletions: %v", err)
	}
	if result.Content != "hello there" || len(result.ToolCalls) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestChatCompletions_ReturnsToolCalls(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		resp := openailib.ChatCompletionResponse{
			Choices: []openailib.ChatCompletionChoice{
				{Message: openailib.ChatCompletionMessage{
					Role: "assistant",
					ToolCalls: []openailib.ToolCall{
						{ID: "call_1", Type: openailib.ToolTypeFunction, Function: openailib.FunctionCall{Name: "roll_dice", Arguments: `{"sides":20}`}},
					},
				}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})

	result, err := client.ChatCompletions(context.Background(), "gpt-4o", []llm.ConversationMessage{
		{Role: llm.RoleUser, Content: "roll a d20"},
	}, []llm.ToolDefinition{{Name: "roll_dice"}}, llm.ToolChoiceAuto)
	if err != nil {
		t.Fatalf("ChatCompletions: %v", err)
	}
	if len(result.ToolCalls) != 1 || result.ToolCalls[0].Name != "roll_dice" {
		t.Fatalf("unexpected tool calls: %+v", result.ToolCalls)
	}
	if string(result.ToolCalls[0].Arguments) != `{"sides":20}` {
		t.Fatalf("unexpected arguments: %s", result.ToolCalls[0].Arguments)
	}
}

func TestChatCompletions_NoMessagesIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached with an empty message list")
	})
	_, err := client.ChatCompletions(context.Background(), "gpt-4o", nil, nil, llm.ToolChoiceAuto)
	if err == nil {
		t.Fatal("expected an error for an empty message list")
	}
}

func TestChatCompletions_RetriesOnTransientFailure(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "server busy", http.StatusInternalServerError)
			return
		}
		resp := openailib.ChatCompletionResponse{
			Choices: []openailib.ChatCompletionChoice{{Message: openailib.ChatCompletionMessage{Content: "recovered"}}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	cfg := &Config{APIKey: "sk-test", Model: "gpt-4o", BaseURL: srv.URL, MaxRetries: 1, HTTPTimeout: 5}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	result, err := client.ChatCompletions(context.Background(), "gpt-4o", []llm.ConversationMessage{
		{Role: llm.RoleUser, Content: "hi"},
	}, nil, llm.ToolChoiceAuto)
	if err != nil {
		t.Fatalf("ChatCompletions: %v", err)
	}
	if result.Content != "recovered" {
		t.Fatalf("result.Content = %q, want recovered", result.Content)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestName_IncludesModel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	if got := client.Name(); got != "openai-compatible (gpt-4o)" {
		t.Errorf("Name() = %q", got)
	}
}
