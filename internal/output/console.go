package output

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var stageEmoji = map[Stage]string{
	StageIngest:    "📥",
	StageAnalyze:   "🔍",
	StageCorrelate: "🔗",
	StageSummarize: "📝",
	StagePackage:   "📦",
}

var stateEmoji = map[State]string{
	StateSucceeded: "✅",
	StateSkipped:   "⚠️",
	StateFailed:    "❌",
}

// Console renders progress events as single emoji-prefixed lines. The line
// format is stable: "<emoji> <stage>: <item> [detail]", so output stays
// grep-safe for scripting.
type Console struct {
	mu sync.Mutex
	w  io.Writer
	// Quiet suppresses started events, leaving one line per item outcome.
	Quiet bool
}

// NewConsole writes to stdout.
func NewConsole() *Console {
	return &Console{w: os.Stdout}
}

// NewConsoleWriter writes to w; used by tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{w: w}
}

// Emit implements Sink.
func (c *Console) Emit(e Event) {
	if e.State == StateStarted && c.Quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch e.State {
	case StateStarted:
		fmt.Fprintf(c.w, "%s %s: %s\n", stageEmoji[e.Stage], e.Stage, e.Item)
	case StateFailed:
		detail := e.Detail
		if detail == "" && e.Err != nil {
			detail = e.Err.Error()
		}
		fmt.Fprintf(c.w, "%s %s: %s (%s)\n", stateEmoji[e.State], e.Stage, e.Item, detail)
	default:
		line := fmt.Sprintf("%s %s: %s", stateEmoji[e.State], e.Stage, e.Item)
		if e.Detail != "" {
			line += " (" + e.Detail + ")"
		}
		fmt.Fprintln(c.w, line)
	}
}
