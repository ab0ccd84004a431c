// Command orchestrator runs the MCP fabric discovery step against a set of
// already-running MCPs (normally started by the launcher), builds the
// top-level agent, and serves its thin HTTP control surface.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pocketomega/rpg-assistant/internal/agent"
	"github.com/pocketomega/rpg-assistant/internal/llm/openai"
	"github.com/pocketomega/rpg-assistant/internal/mcpfabric"
	"github.com/pocketomega/rpg-assistant/internal/prompt"
	"github.com/pocketomega/rpg-assistant/internal/session"
	"github.com/pocketomega/rpg-assistant/internal/tool"
	"github.com/pocketomega/rpg-assistant/internal/tool/builtin"
	"github.com/pocketomega/rpg-assistant/internal/web"
	"github.com/pocketomega/rpg-assistant/pkg/config"
)

// rpgMCPKey is the registry key execute_rpg_task delegates to.
const rpgMCPKey = "rpg"

func main() {
	config.LoadEnv()

	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        RPG Assistant Orchestrator     ║")
	fmt.Println("╚══════════════════════════════════════╝")

	llmClient, err := openai.NewClientFromEnv()
	if err != nil {
		log.Fatalf("failed to initialize LLM client: %v", err)
	}
	model := llmClient.GetConfig().Model
	fmt.Printf("LLM: %s @ %s\n", model, llmClient.GetConfig().BaseURL)

	workspaceDir := os.Getenv("WORKSPACE_DIR")
	if workspaceDir == "" {
		workspaceDir, _ = os.Getwd()
	}

	registryPath := os.Getenv("MCP_REGISTRY")
	if registryPath == "" {
		registryPath = filepath.Join(workspaceDir, "mcp_registry.yaml")
	}
	fullRegistry, err := mcpfabric.LoadDescriptorRegistry(registryPath)
	if err != nil {
		log.Fatalf("failed to load mcp registry %s: %v", registryPath, err)
	}

	activeKeys := mcpfabric.ParseActiveMCPs(os.Getenv("ACTIVE_MCPS"))
	if len(activeKeys) == 0 {
		log.Fatalf("ACTIVE_MCPS must name at least one registry key (registry has %d entries)", len(fullRegistry))
	}
	active, err := mcpfabric.SelectActive(fullRegistry, activeKeys)
	if err != nil {
		log.Fatalf("%v", err)
	}
	hasRPG := false
	for _, d := range active {
		if d.Key == rpgMCPKey {
			hasRPG = true
		}
	}
	if !hasRPG {
		log.Printf("WARNING: ACTIVE_MCPS does not include %q; execute_rpg_task will fail every call", rpgMCPKey)
	}

	discoveryCtx, cancel := context.WithTimeout(context.Background(), mcpfabric.DiscoveryDeadline+5*time.Second)
	defer cancel()
	discovery, err := mcpfabric.NewDiscovery(discoveryCtx, active, 5*time.Second)
	if err != nil {
		log.Fatalf("mcp discovery failed: %v", err)
	}
	fmt.Printf("MCP fabric: %d server(s) ready (%s)\n", len(discovery.Keys()), strings.Join(discovery.Keys(), ", "))

	// Generic local tools (file/shell/http/search/time), same subset the
	// teacher ships, as the orchestrator's non-delegating local-tool set.
	registry := tool.NewRegistry()
	shellEnabled := os.Getenv("TOOL_SHELL_ENABLED") != "false"
	registry.Register(builtin.NewShellTool(workspaceDir, shellEnabled))
	registry.Register(builtin.NewFileReadTool(workspaceDir))
	registry.Register(builtin.NewFileWriteTool(workspaceDir))
	registry.Register(builtin.NewFileListTool(workspaceDir))
	registry.Register(builtin.NewFileFindTool(workspaceDir))
	registry.Register(builtin.NewFileGrepTool(workspaceDir))
	registry.Register(builtin.NewTimeTool())
	registry.Register(builtin.NewWebReaderTool())
	if os.Getenv("TOOL_HTTP_ENABLED") != "false" {
		registry.Register(builtin.NewHTTPRequestTool(os.Getenv("TOOL_HTTP_ALLOW_INTERNAL") == "true"))
	}
	if key := os.Getenv("TAVILY_API_KEY"); key != "" {
		registry.Register(builtin.NewTavilySearchTool(key))
	}
	if key := os.Getenv("BRAVE_API_KEY"); key != "" {
		registry.Register(builtin.NewBraveSearchTool(key))
	}
	if err := registry.InitAll(context.Background()); err != nil {
		log.Fatalf("failed to initialize local tools: %v", err)
	}
	defer registry.CloseAll()

	promptsDir := os.Getenv("PROMPTS_DIR")
	if promptsDir == "" {
		promptsDir = filepath.Join(workspaceDir, "prompts")
	}
	rulesPath := os.Getenv("USER_RULES_PATH")
	if rulesPath == "" {
		rulesPath = filepath.Join(workspaceDir, "rules.md")
	}
	promptLoader := prompt.NewPromptLoader(promptsDir, rulesPath)
	promptLoader.PatchFile("orchestrator.md", "{{ACTIVE_MCPS}}", strings.Join(discovery.Keys(), ", "))

	logDir := filepath.Join(workspaceDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		log.Printf("failed to create log directory %q: %v", logDir, err)
	}
	execLogger, err := agent.NewExecLogger(filepath.Join(logDir, "agent_exec.md"))
	if err != nil {
		log.Printf("exec logger disabled: %v", err)
		execLogger = nil
	} else {
		defer execLogger.Close()
	}
	var logger agent.Logger
	if execLogger != nil {
		logger = execLogger
	}

	delegation := agent.DelegationConfig{
		Provider:       llmClient,
		Model:          model,
		SubAgentPrompt: promptLoader.LoadSubAgentPrompt(),
		Discovery:      discovery,
		RPGMCPKey:      rpgMCPKey,
		Logger:         logger,
	}
	catalog, err := web.BuildLocalToolCatalog(registry, agent.ExecuteRPGTaskSchema(), agent.NewExecuteRPGTaskHandler(delegation))
	if err != nil {
		log.Fatalf("failed to build tool catalog: %v", err)
	}
	for _, key := range discovery.Keys() {
		if key == rpgMCPKey {
			// Reserved for the execute_rpg_task sub-agent; the orchestrator
			// itself never calls RPG functions directly.
			continue
		}
		handle, _ := discovery.Handle(key)
		for _, schema := range discovery.Schemas(key) {
			if err := catalog.RegisterRemote(schema, handle, schema.Name); err != nil {
				log.Printf("catalog: %v", err)
			}
		}
	}

	orchestrator := agent.New(llmClient, model, promptLoader.LoadOrchestratorPrompt(), catalog, logger)

	sessionTTL := 30 * time.Minute
	sessionMaxTurns := 10
	if v := os.Getenv("SESSION_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			sessionTTL = time.Duration(n) * time.Minute
		}
	}
	if v := os.Getenv("SESSION_MAX_TURNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			sessionMaxTurns = n
		}
	}
	sessionStore := session.NewStore(sessionTTL, sessionMaxTurns)
	defer sessionStore.Close()

	agentHandler := web.NewAgentHandler(web.AgentHandlerOptions{
		Orchestrator: orchestrator,
		Store:        sessionStore,
	})

	server, err := web.NewServer(agentHandler, web.HealthInfo{
		LLMModel:       model,
		ToolCount:      len(catalog.Schemas()),
		MCPServerCount: len(discovery.Keys()),
		SessionCount:   sessionStore.Count,
	})
	if err != nil {
		log.Fatalf("failed to create web server: %v", err)
	}

	if err := server.Start(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
