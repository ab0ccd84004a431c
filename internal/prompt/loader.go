// Package prompt implements a two-layer prompt loading system:
//
//   - L2: the built-in system prompts in prompts/*.md (embedded by default,
//     overridable at runtime by placing a same-named file in promptsDir)
//   - L3: an optional user addendum in rules.md, appended to the
//     orchestrator prompt after filtering out known injection attempts
//
// The PromptLoader is safe for concurrent use.
package prompt

import (
	"embed"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// defaultPrompts embeds the L2 prompt files shipped with the binary.
//
//go:embed prompts/*
var defaultPrompts embed.FS

const (
	orchestratorFile = "orchestrator.md"
	subAgentFile     = "rpg_subagent.md"
)

// promptInjectionPatterns contains lowercased substrings that indicate prompt
// injection attempts. Lines matching any pattern are dropped from the L3
// user addendum, with a warning.
var promptInjectionPatterns = []string{
	"ignore previous",
	"ignore above",
	"ignore all previous",
	"disregard all",
	"disregard previous",
	"forget previous",
	"forget all previous",
	"override instructions",
	"override previous",
	"new instructions:",
	"from now on",
}

// PromptLoader reads the orchestrator and sub-agent system prompts, plus an
// optional user addendum file. It caches file contents after the first
// read; call Reload to invalidate the cache.
type PromptLoader struct {
	promptsDir string // runtime override directory (may be empty)
	rulesPath  string // path to the L3 user addendum file
	cache      map[string]string
	patchHooks []patchEntry // recorded PatchFile calls, reapplied after Reload
	mu         sync.RWMutex
}

// patchEntry records a single PatchFile call for reapplication after Reload.
type patchEntry struct {
	Name, OldStr, NewStr string
}

// NewPromptLoader creates a PromptLoader that reads prompt files from
// promptsDir (falling back to embedded defaults) and a user addendum from
// rulesPath.
//
// Both paths may be empty strings — the loader degrades gracefully:
//   - empty promptsDir: only embedded defaults are used
//   - empty / non-existent rulesPath: LoadUserAddendum returns ""
func NewPromptLoader(promptsDir, rulesPath string) *PromptLoader {
	return &PromptLoader{
		promptsDir: promptsDir,
		rulesPath:  rulesPath,
		cache:      make(map[string]string),
	}
}

// LoadOrchestratorPrompt returns the orchestrator's system prompt (spec.md
// §4.4's "broadest allow-list, right to delegate" agent), with any user
// addendum appended.
func (l *PromptLoader) LoadOrchestratorPrompt() string {
	base := l.Load(orchestratorFile)
	if addendum := l.LoadUserAddendum(); addendum != "" {
		return base + "\n\n" + addendum
	}
	return base
}

// LoadSubAgentPrompt returns the RPG sub-agent's system prompt (spec.md
// §4.4's "restricted allow-list, no delegation rights" agent).
func (l *PromptLoader) LoadSubAgentPrompt() string {
	return l.Load(subAgentFile)
}

// Load returns the content of the named prompt file (e.g. "orchestrator.md").
//
// Priority:
//  1. Disk file at promptsDir/name (runtime override)
//  2. Embedded default at prompts/name
//  3. Empty string (silent, file simply absent)
//
// A disk read error (permission denied, etc.) logs a warning and falls back
// to the embedded default. Cache hit avoids repeated disk reads.
func (l *PromptLoader) Load(name string) string {
	cacheKey := "l2:" + name

	l.mu.RLock()
	if val, ok := l.cache[cacheKey]; ok {
		l.mu.RUnlock()
		return val
	}
	l.mu.RUnlock()

	content := l.loadUncached(name)

	l.mu.Lock()
	if val, ok := l.cache[cacheKey]; ok {
		l.mu.Unlock()
		return val
	}
	l.cache[cacheKey] = content
	l.mu.Unlock()

	return content
}

func (l *PromptLoader) loadUncached(name string) string {
	embedPath := "prompts/" + name

	if l.promptsDir != "" {
		diskPath := filepath.Join(l.promptsDir, name)
		data, err := os.ReadFile(diskPath)
		if err == nil {
			return string(data)
		}
		if !os.IsNotExist(err) {
			log.Printf("[Prompt] Warning: read %q failed: %v; falling back to embedded default", diskPath, err)
		}
	}

	data, err := fs.ReadFile(defaultPrompts, embedPath)
	if err == nil {
		return string(data)
	}
	return ""
}

// LoadUserAddendum reads the L3 user addendum file and filters dangerous
// injection patterns. Lines containing known jailbreak phrases
// (case-insensitive) are dropped and logged as warnings. Returns "" if the
// file does not exist or rulesPath is empty.
func (l *PromptLoader) LoadUserAddendum() string {
	cacheKey := "l3:rules"

	l.mu.RLock()
	if val, ok := l.cache[cacheKey]; ok {
		l.mu.RUnlock()
		return val
	}
	l.mu.RUnlock()

	content := l.loadUserAddendumUncached()

	l.mu.Lock()
	if val, ok := l.cache[cacheKey]; ok {
		l.mu.Unlock()
		return val
	}
	l.cache[cacheKey] = content
	l.mu.Unlock()

	return content
}

func (l *PromptLoader) loadUserAddendumUncached() string {
	if l.rulesPath == "" {
		return ""
	}
	data, err := os.ReadFile(l.rulesPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[Prompt] Warning: read user addendum %q failed: %v", l.rulesPath, err)
		}
		return ""
	}
	return filterDangerousLines(string(data))
}

// filterDangerousLines drops lines that match known prompt-injection patterns.
func filterDangerousLines(content string) string {
	lines := strings.Split(content, "\n")
	safe := make([]string, 0, len(lines))
	for _, line := range lines {
		lower := strings.ToLower(line)
		dropped := false
		for _, pattern := range promptInjectionPatterns {
			if strings.Contains(lower, pattern) {
				log.Printf("[Prompt] Warning: user addendum line dropped (injection pattern %q detected): %q", pattern, line)
				dropped = true
				break
			}
		}
		if !dropped {
			safe = append(safe, line)
		}
	}
	return strings.Join(safe, "\n")
}

// Reload clears the internal cache so that subsequent Load calls re-read
// files from disk. Safe for concurrent use.
func (l *PromptLoader) Reload() {
	l.mu.Lock()
	l.cache = make(map[string]string)
	l.mu.Unlock()

	for _, p := range l.patchHooks {
		l.reapplyPatch(p)
	}
}

func (l *PromptLoader) reapplyPatch(p patchEntry) {
	cacheKey := "l2:" + p.Name
	l.mu.RLock()
	content, ok := l.cache[cacheKey]
	l.mu.RUnlock()
	if !ok {
		content = l.loadUncached(p.Name)
	}
	patched := strings.ReplaceAll(content, p.OldStr, p.NewStr)
	l.mu.Lock()
	l.cache[cacheKey] = patched
	l.mu.Unlock()
}

// PatchFile loads the named prompt file, replaces oldStr with newStr, and
// stores the result in the cache so that subsequent Load calls return the
// patched version without re-reading the file.
//
// Used at startup to inject live environment data (e.g. the set of
// discovered MCP keys) into a prompt template containing a placeholder
// like "{{ACTIVE_MCPS}}". The patch is recorded and reapplied by Reload().
func (l *PromptLoader) PatchFile(name, oldStr, newStr string) {
	cacheKey := "l2:" + name

	content := l.Load(name)
	patched := strings.ReplaceAll(content, oldStr, newStr)

	l.mu.Lock()
	l.cache[cacheKey] = patched
	l.mu.Unlock()

	l.patchHooks = append(l.patchHooks, patchEntry{Name: name, OldStr: oldStr, NewStr: newStr})
}
