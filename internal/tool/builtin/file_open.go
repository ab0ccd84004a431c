package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pocketomega/rpg-assistant/internal/tool"
)

// blockedOpenExts blocks file_open from launching executables or scripts.
// Keeps the agent from being tricked into executing a payload; file_open is
// meant only for viewing media or documents.
var blockedOpenExts = map[string]bool{
	// Windows executables / installers
	".exe": true, ".com": true, ".msi": true, ".msp": true,
	".scr": true, ".pif": true,
	// Scripts
	".bat": true, ".cmd": true,
	".ps1": true, ".ps2": true,
	".vbs": true, ".vbe": true,
	".js":  true, ".jse": true,
	".wsf": true, ".wsh": true,
	".sh":  true, ".bash": true, ".zsh": true,
	// Cross-platform runtime scripts
	".jar": true,
	".py":  true, ".pyw": true,
	".rb":  true,
	".pl":  true,
	".php": true,
}

// ── file_open ──

type FileOpenTool struct {
	workspaceDir string
}

func NewFileOpenTool(workspaceDir string) *FileOpenTool {
	return &FileOpenTool{workspaceDir: workspaceDir}
}

func (t *FileOpenTool) Name() string { return "file_open" }
func (t *FileOpenTool) Description() string {
	return "Open a file (image, audio, video, document, etc.) with the OS default application. Media/documents only; executables and scripts are refused."
}

func (t *FileOpenTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "path", Type: "string", Description: "File to open (relative to the workspace)", Required: true},
	)
}

func (t *FileOpenTool) Init(_ context.Context) error { return nil }
func (t *FileOpenTool) Close() error                 { return nil }

type fileOpenArgs struct {
	Path string `json:"path"`
}

func (t *FileOpenTool) Execute(_ context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a fileOpenArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("failed to parse arguments: %v", err)}, nil
	}

	if strings.TrimSpace(a.Path) == "" {
		return tool.ToolResult{Error: "path must not be empty"}, nil
	}

	// Safety: refuse executable/script extensions
	ext := strings.ToLower(filepath.Ext(a.Path))
	if blockedOpenExts[ext] {
		return tool.ToolResult{Error: fmt.Sprintf("refusing to open an executable or script file (%s)", ext)}, nil
	}

	absPath, err := safeResolvePath(a.Path, t.workspaceDir)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return tool.ToolResult{Error: fmt.Sprintf("file not found: %s — use file_list to confirm the path first", a.Path)}, nil
		}
		return tool.ToolResult{Error: fmt.Sprintf("failed to access file: %v", err)}, nil
	}
	if info.IsDir() {
		return tool.ToolResult{Error: "that path is a directory, file_open only supports files"}, nil
	}

	cmd := openCmdFunc(absPath)
	if err := cmd.Start(); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("failed to launch the default application: %v", err)}, nil
	}
	// Reap the child asynchronously to avoid leaving a zombie process.
	go func() { _ = cmd.Wait() }()

	relPath := relOrAbs(absPath, t.workspaceDir)
	return tool.ToolResult{Output: fmt.Sprintf("opened with the default application: %s", relPath)}, nil
}

// openCmdFunc is the actual "open with default program" command constructor.
// Kept as a package variable rather than called directly so tests can swap it
// for a no-op and avoid popping a real GUI window.
var openCmdFunc = openCmd

// openCmd returns the OS-specific "open with default program" command.
//
//   - Windows: cmd /c start "" "<path>"
//     (the empty string after start is a window-title placeholder, preventing
//     a path containing spaces from being misparsed as the title)
//   - macOS:   open "<path>"
//   - Linux:   xdg-open "<path>"
func openCmd(absPath string) *exec.Cmd {
	switch runtime.GOOS {
	case "windows":
		return exec.Command("cmd", "/c", "start", "", absPath)
	case "darwin":
		return exec.Command("open", absPath)
	default:
		return exec.Command("xdg-open", absPath)
	}
}
