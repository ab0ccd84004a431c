package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pocketomega/rpg-assistant/internal/llm"
)

// ExecLogger writes agent execution turns to a markdown file for
// debugging. Thread-safe. The log file is truncated at the start of each
// session. Implements Logger.
type ExecLogger struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// NewExecLogger creates a logger that writes to path. The file is created
// (or truncated) immediately.
func NewExecLogger(path string) (*ExecLogger, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("cannot create exec log: %w", err)
	}
	return &ExecLogger{file: f, path: path}, nil
}

// StartSession writes a session header with the user's request.
func (l *ExecLogger) StartSession(userMessage string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.file.Truncate(0)
	l.file.Seek(0, 0)

	l.writef("# Agent execution log\n\n")
	l.writef("**Started**: %s  \n", time.Now().Format("2006-01-02 15:04:05"))
	l.writef("**Request**: %s\n\n", userMessage)
	l.writef("---\n\n")
}

// LogTurn records one LLM call: the assistant's content (if any) and the
// tool calls it requested.
func (l *ExecLogger) LogTurn(turn int, assistantContent string, toolCalls []llm.ToolCall) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.writef("## Turn %d\n\n", turn+1)
	if assistantContent != "" {
		l.writef("%s\n\n", assistantContent)
	}
	for _, tc := range toolCalls {
		l.writef("- requests `%s` with `%s`\n", tc.Name, RedactForLog(tc.Arguments))
	}
	l.writef("\n")
}

// LogToolCall records the result of dispatching one tool call. Both params
// and result pass through RedactForLog before being written.
func (l *ExecLogger) LogToolCall(name string, params json.RawMessage, result string, dispatchErr error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.writef("### tool: %s\n\n", name)
	l.writef("params: `%s`\n\n", RedactForLog(params))
	if dispatchErr != nil {
		l.writef("error: %s\n\n", dispatchErr.Error())
	} else {
		l.writef("result: `%s`\n\n", RedactForLog([]byte(result)))
	}
	l.writef("---\n\n")
}

// EndSession writes a closing summary.
func (l *ExecLogger) EndSession(result Result) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.writef("## Summary\n\n")
	l.writef("- **kind**: %s\n", resultKindLabel(result.Kind))
	l.writef("- **finished**: %s\n", time.Now().Format("2006-01-02 15:04:05"))
}

// Close closes the underlying file.
func (l *ExecLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *ExecLogger) writef(format string, args ...interface{}) {
	fmt.Fprintf(l.file, format, args...)
}

func resultKindLabel(k ResultKind) string {
	switch k {
	case ResultFinalText:
		return "final_text"
	case ResultGuiCommand:
		return "gui_command"
	case ResultFallback:
		return "fallback"
	default:
		return "unknown"
	}
}
