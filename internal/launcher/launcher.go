// Package launcher implements the Launcher/Supervisor (spec.md §2): it
// spawns MCP processes, streams each one's stdout/stderr into its own log
// file, propagates shutdown, and writes a discovery manifest recording
// which MCPs are active for this run.
package launcher

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pocketomega/rpg-assistant/internal/mcpfabric"
	"github.com/pocketomega/rpg-assistant/internal/runtime"
)

// shutdownGrace bounds how long Shutdown waits for a spawned process to
// exit after being signaled before it is killed outright.
const shutdownGrace = 3 * time.Second

// process is one supervised MCP: its command, its log file, and the
// descriptor it was spawned from.
type process struct {
	descriptor mcpfabric.MCPDescriptor
	cmd        *exec.Cmd
	logFile    *os.File
}

// Manager owns the lifecycle of every spawned MCP process. Mirrors the
// MCP client manager's rule: state changes happen under mu, process
// spawning and termination (which can block) happen outside it.
type Manager struct {
	mu        sync.Mutex
	processes map[string]*process
	logDir    string
	node      runtime.NodeRuntimeInfo
	nodeOnce  sync.Once
}

// NewManager returns a Manager that writes per-MCP logs under
// logDir/mcp/{key}.log.
func NewManager(logDir string) *Manager {
	return &Manager{
		processes: make(map[string]*process),
		logDir:    logDir,
	}
}

// Spawn starts one MCP process from its descriptor. script_or_endpoint is
// split on whitespace into a program and its arguments, with no shell
// quoting or expansion; a `.js`/`.ts` entrypoint is run through the
// detected node/tsx runtime instead of executed directly. The descriptor's
// port is passed to the child as PORT, matching §6.4's "port resolvable
// from an env var."
func (m *Manager) Spawn(d mcpfabric.MCPDescriptor) error {
	fields := strings.Fields(d.ScriptOrEndpoint)
	if len(fields) == 0 {
		return fmt.Errorf("launcher: mcp %q has empty script_or_endpoint", d.Key)
	}
	entry, args := fields[0], fields[1:]

	var cmd *exec.Cmd
	switch {
	case strings.HasSuffix(entry, ".ts"):
		m.ensureNodeProbed()
		if !m.node.IsTsxReady() {
			return fmt.Errorf("launcher: mcp %q needs tsx but it is not available", d.Key)
		}
		cmd = exec.Command("tsx", append([]string{entry}, args...)...)
	case strings.HasSuffix(entry, ".js"):
		m.ensureNodeProbed()
		if !m.node.NodeAvailable {
			return fmt.Errorf("launcher: mcp %q needs node but it is not available", d.Key)
		}
		cmd = exec.Command("node", append([]string{entry}, args...)...)
	default:
		cmd = exec.Command(entry, args...)
	}
	cmd.Env = append(os.Environ(), "PORT="+strconv.Itoa(d.Port))

	logFile, err := m.openLogFile(d.Key)
	if err != nil {
		return fmt.Errorf("launcher: open log for %q: %w", d.Key, err)
	}
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return fmt.Errorf("launcher: start %q: %w", d.Key, err)
	}

	m.mu.Lock()
	m.processes[d.Key] = &process{descriptor: d, cmd: cmd, logFile: logFile}
	m.mu.Unlock()
	return nil
}

// SpawnAll spawns every descriptor, best-effort: one failure does not
// prevent the rest from starting. Returns the number started and every
// per-descriptor error.
func (m *Manager) SpawnAll(descriptors []mcpfabric.MCPDescriptor) (int, []error) {
	var errs []error
	started := 0
	for _, d := range descriptors {
		if err := m.Spawn(d); err != nil {
			errs = append(errs, err)
			continue
		}
		started++
	}
	return started, errs
}

func (m *Manager) ensureNodeProbed() {
	m.nodeOnce.Do(func() {
		m.node = runtime.ProbeNodeRuntime()
	})
}

func (m *Manager) openLogFile(key string) (*os.File, error) {
	dir := filepath.Join(m.logDir, "mcp")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.Create(filepath.Join(dir, key+".log"))
}

// Shutdown terminates every spawned process: signal first, give them one
// shared shutdownGrace window to exit on their own, then kill stragglers. Safe to call
// once; a second call is a no-op since the process table is already
// empty.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	procs := make([]*process, 0, len(m.processes))
	for key, p := range m.processes {
		procs = append(procs, p)
		delete(m.processes, key)
	}
	m.mu.Unlock()

	for _, p := range procs {
		if p.cmd.Process == nil {
			continue
		}
		if err := terminateProcess(p.cmd); err != nil {
			p.cmd.Process.Kill()
		}
	}

	done := make(chan struct{})
	go func() {
		for _, p := range procs {
			p.cmd.Wait()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownGrace):
		for _, p := range procs {
			if p.cmd.Process != nil {
				p.cmd.Process.Kill()
			}
		}
	}

	for _, p := range procs {
		p.logFile.Close()
	}
}

// Count returns the number of currently supervised processes.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.processes)
}

// NodeStatus reports node/tsx availability, probing eagerly if no spawn has
// triggered the lazy probe yet. Used by cmd/launcher to log why a .js/.ts
// mcp might fail to start before that failure actually happens.
func (m *Manager) NodeStatus() string {
	m.ensureNodeProbed()
	return m.node.StatusString()
}

// manifestEntry is one line of the discovery manifest: enough for an
// external tool (or a future desktop UI) to know which MCPs are active
// and where to reach them, without re-parsing the registry.
type manifestEntry struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	BaseURL     string `json:"base_url"`
}

// WriteManifest writes the discovery manifest (spec.md §2: "writes a
// discovery manifest (which MCPs are active)") to path, one entry per
// active descriptor.
func WriteManifest(path string, active []mcpfabric.MCPDescriptor) error {
	entries := make([]manifestEntry, len(active))
	for i, d := range active {
		entries[i] = manifestEntry{Key: d.Key, DisplayName: d.DisplayName, BaseURL: d.BaseURL()}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("launcher: marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("launcher: create manifest dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
