// Command launcher is the Launcher/Supervisor (spec.md §2): it reads the
// MCP registry, spawns the active MCPs as child processes, streams their
// output into per-MCP logs, writes the discovery manifest listing the
// active MCPs, and propagates shutdown to every child.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pocketomega/rpg-assistant/internal/launcher"
	"github.com/pocketomega/rpg-assistant/internal/mcpfabric"
	"github.com/pocketomega/rpg-assistant/pkg/config"
)

func main() {
	config.LoadEnv()

	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        RPG Assistant Launcher         ║")
	fmt.Println("╚══════════════════════════════════════╝")

	workspaceDir := os.Getenv("WORKSPACE_DIR")
	if workspaceDir == "" {
		workspaceDir, _ = os.Getwd()
	}

	registryPath := os.Getenv("MCP_REGISTRY")
	if registryPath == "" {
		registryPath = filepath.Join(workspaceDir, "mcp_registry.yaml")
	}
	registry, err := mcpfabric.LoadDescriptorRegistry(registryPath)
	if err != nil {
		log.Fatalf("launcher: load registry %s: %v", registryPath, err)
	}

	// ACTIVE_MCPS is the primary contract (§6.3); a positional argument
	// list is accepted as an alternative so the launcher can be invoked
	// directly without exporting an env var.
	activeArg := os.Getenv("ACTIVE_MCPS")
	if activeArg == "" && len(os.Args) > 1 {
		activeArg = os.Args[1]
	}
	activeKeys := mcpfabric.ParseActiveMCPs(activeArg)
	if len(activeKeys) == 0 {
		log.Fatalf("launcher: no MCPs named (set ACTIVE_MCPS or pass a comma-separated positional argument); registry has %d entries", len(registry))
	}
	active, err := mcpfabric.SelectActive(registry, activeKeys)
	if err != nil {
		log.Fatalf("launcher: %v", err)
	}

	logDir := filepath.Join(workspaceDir, "logs")
	mgr := launcher.NewManager(logDir)
	log.Println("launcher:", mgr.NodeStatus())
	started, errs := mgr.SpawnAll(active)
	for _, e := range errs {
		log.Printf("launcher: %v", e)
	}
	fmt.Printf("launcher: %d/%d mcp(s) started\n", started, len(active))

	manifestPath := filepath.Join(workspaceDir, "mcp_manifest.json")
	if err := launcher.WriteManifest(manifestPath, active); err != nil {
		log.Printf("launcher: write manifest: %v", err)
	} else {
		fmt.Printf("launcher: manifest written to %s\n", manifestPath)
	}

	// Same first-signal-graceful, second-signal-forced pattern as the
	// game server: propagate shutdown to every spawned child, but don't
	// hang forever if one refuses to die.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("launcher: received signal %v, shutting down mcp fleet...", sig)

	done := make(chan struct{})
	go func() {
		mgr.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		log.Println("launcher: all mcp processes stopped")
	case <-sigCh:
		log.Println("launcher: second signal received, forcing exit")
		os.Exit(1)
	}
}
