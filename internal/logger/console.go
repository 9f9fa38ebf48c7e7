// Package logger provides the console and file implementations of
// orchestrator.Logger, grounded on the teacher's internal/logger/console.go
// (fatih/color + go-isatty terminal detection, timestamped level-filtered
// lines, mutex-guarded writer) and file.go (JSONL sink), narrowed to the
// events this domain's wave loop and escalation path actually emit.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/foreman-sh/foreman/internal/models"
)

const (
	levelDebug int = 0
	levelInfo  int = 1
	levelWarn  int = 2
	levelError int = 3
)

// ConsoleLogger writes timestamped, level-filtered lines to a writer,
// colourized when the writer is a terminal.
type ConsoleLogger struct {
	writer   io.Writer
	level    int
	mu       sync.Mutex
	useColor bool
}

// NewConsoleLogger builds a ConsoleLogger; an empty or unrecognised level
// defaults to "info". Color is enabled automatically when writer is
// os.Stdout or os.Stderr and that stream is a TTY.
func NewConsoleLogger(writer io.Writer, level string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:   writer,
		level:    parseLevel(level),
		useColor: isTerminal(writer),
	}
}

func isTerminal(w io.Writer) bool {
	switch w {
	case os.Stdout:
		return isatty.IsTerminal(os.Stdout.Fd())
	case os.Stderr:
		return isatty.IsTerminal(os.Stderr.Fd())
	default:
		return false
	}
}

func parseLevel(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return levelDebug
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func (c *ConsoleLogger) line(level int, tag string, colorFn func(format string, a ...interface{}) string, format string, args ...interface{}) {
	if level < c.level || c.writer == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := time.Now().Format("15:04:05")
	var body string
	if c.useColor && colorFn != nil {
		body = colorFn(format, args...)
	} else {
		body = fmt.Sprintf(format, args...)
	}
	fmt.Fprintf(c.writer, "[%s] %s %s\n", ts, tag, body)
}

func (c *ConsoleLogger) LogWaveStart(wave models.Wave) {
	c.line(levelInfo, "wave", color.CyanString, "wave %d starting: %d tasks, cap %d", wave.Number, len(wave.TaskIDs), wave.MaxParallelAgents)
}

func (c *ConsoleLogger) LogWaveComplete(wave models.Wave, duration time.Duration, completed, failed int) {
	colorFn := color.GreenString
	if failed > 0 {
		colorFn = color.YellowString
	}
	c.line(levelInfo, "wave", colorFn, "wave %d finished in %s: %d completed, %d failed", wave.Number, duration.Round(time.Millisecond), completed, failed)
}

func (c *ConsoleLogger) LogTaskStarted(task models.Task, agentID string) {
	c.line(levelDebug, "task", nil, "%s (%s) started on agent %s", task.ShortID, task.Title, agentID)
}

func (c *ConsoleLogger) LogTaskResult(task models.Task, class models.ErrorClass, message string) {
	if class == "" {
		c.line(levelInfo, "task", color.GreenString, "%s completed", task.ShortID)
		return
	}
	c.line(levelWarn, "task", color.RedString, "%s failed (%s): %s", task.ShortID, class, message)
}

func (c *ConsoleLogger) LogEscalation(e models.Escalation) {
	c.line(levelError, "escalate", color.RedString, "task %s escalated: %s", e.TaskID, e.Reason)
}

func (c *ConsoleLogger) LogAgentStuck(a models.AgentInstance) {
	c.line(levelWarn, "agent", color.YellowString, "agent %s stuck on task %s, terminated", a.ID, a.CurrentTaskID)
}
