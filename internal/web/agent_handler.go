package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pocketomega/rpg-assistant/internal/agent"
	"github.com/pocketomega/rpg-assistant/internal/llm"
	"github.com/pocketomega/rpg-assistant/internal/mcpfabric"
	"github.com/pocketomega/rpg-assistant/internal/session"
	"github.com/pocketomega/rpg-assistant/internal/tool"
)

const (
	maxRequestBody  = 1 << 20 // 1MB max request body
	maxMessageRunes = 8000    // max user message length in runes
	historyBudget   = 4000    // rune budget for prior-turn context fed to the agent
)

// agentTimeout is the global timeout for one /api/agent call.
// Configurable via AGENT_TIMEOUT_MINUTES env var (default: 10, min: 1, max: 30).
var agentTimeout = loadAgentTimeout()

func loadAgentTimeout() time.Duration {
	const defaultMinutes = 10
	v := os.Getenv("AGENT_TIMEOUT_MINUTES")
	if v == "" {
		return time.Duration(defaultMinutes) * time.Minute
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 30 {
		log.Printf("[Config] WARNING: invalid AGENT_TIMEOUT_MINUTES=%q (must be 1-30), using default %d", v, defaultMinutes)
		return time.Duration(defaultMinutes) * time.Minute
	}
	return time.Duration(n) * time.Minute
}

// AgentHandlerOptions groups all configuration for AgentHandler.
type AgentHandlerOptions struct {
	Orchestrator *agent.Agent
	Store        *session.Store
}

// AgentHandler serves /api/agent, running the orchestrator's bounded
// tool-calling loop over one user message and streaming the outcome back
// over SSE.
type AgentHandler struct {
	orchestrator *agent.Agent
	sessionStore *session.Store
}

// NewAgentHandler creates a new agent handler from AgentHandlerOptions.
func NewAgentHandler(opts AgentHandlerOptions) *AgentHandler {
	return &AgentHandler{
		orchestrator: opts.Orchestrator,
		sessionStore: opts.Store,
	}
}

// HandleAgent runs the orchestrator over one user message and streams the
// result as SSE events: a status ack, then a single "done" event carrying
// either the final text, the structured GUI command, or the fallback.
func (h *AgentHandler) HandleAgent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	userMsg := strings.TrimSpace(r.FormValue("message"))
	if userMsg == "" {
		http.Error(w, "Empty message", http.StatusBadRequest)
		return
	}
	if len([]rune(userMsg)) > maxMessageRunes {
		http.Error(w, "Message too long", http.StatusRequestEntityTooLarge)
		return
	}

	log.Printf("[Agent] Received: %s", userMsg)
	startTime := time.Now()

	sessionID := strings.TrimSpace(r.FormValue("session_id"))
	var history []llm.ConversationMessage
	if sessionID != "" && h.sessionStore != nil {
		turns, summary := h.sessionStore.GetSessionContext(sessionID)
		history = session.ToMessages(turns, historyBudget, summary)
	}
	history = append(history, llm.ConversationMessage{Role: llm.RoleUser, Content: userMsg})

	sse := newSSEWriter(w, r)
	if sse == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), agentTimeout)
	defer cancel()

	sse.Send("status", map[string]string{"message": "analyzing request..."})

	result, err := h.orchestrator.Run(ctx, history)
	if err != nil {
		log.Printf("[Agent] run failed: %v", err)
		sse.Send("done", sseDoneEvent{Solution: "The agent encountered an error and could not complete this request."})
		return
	}

	solution := resultToSolution(result)

	stats := &agentStats{ElapsedMs: time.Since(startTime).Milliseconds()}
	sse.Send("done", sseDoneEvent{Solution: solution, Stats: stats})
	log.Printf("[Agent] Done: kind=%d, solution %d chars", result.Kind, len(solution))

	if sessionID != "" && h.sessionStore != nil {
		h.sessionStore.AppendTurn(sessionID, session.Turn{
			UserMsg:   userMsg,
			Assistant: solution,
			IsAgent:   true,
		})
	}
}

// resultToSolution renders an agent.Result as the plain text the SSE "done"
// event carries. Structured GUI commands are summarized by their text param
// when present, since this handler has no GUI surface of its own to render
// them natively.
func resultToSolution(result agent.Result) string {
	switch result.Kind {
	case agent.ResultGuiCommand:
		var probe struct {
			Params struct {
				Text string `json:"text"`
			} `json:"params"`
		}
		if err := json.Unmarshal(result.GUI, &probe); err == nil && probe.Params.Text != "" {
			return probe.Params.Text
		}
		return string(result.GUI)
	default:
		return result.Text
	}
}

// BuildLocalToolCatalog registers the generic local tools alongside
// execute_rpg_task into one ToolCatalog for the orchestrator.
func BuildLocalToolCatalog(registry *tool.Registry, delegationSchema mcpfabric.FunctionSchema, delegationHandler mcpfabric.LocalToolHandler) (*mcpfabric.ToolCatalog, error) {
	catalog := mcpfabric.NewToolCatalog()
	if err := registry.RegisterInto(catalog); err != nil {
		return nil, err
	}
	if err := catalog.RegisterLocal(delegationSchema, delegationHandler); err != nil {
		return nil, err
	}
	return catalog, nil
}
