package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/foreman-sh/foreman/internal/models"
)

// FileLogger writes one JSON object per line to a durable run log,
// grounded on the teacher's internal/logger/file.go (timestamped run file
// under a log directory), narrowed from per-task text files to a single
// JSONL stream suitable for offline ingestion.
type FileLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileLogger creates logDir if needed and opens a new timestamped JSONL
// run log inside it.
func NewFileLogger(logDir string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	name := fmt.Sprintf("run-%s.jsonl", time.Now().UTC().Format("20060102-150405"))
	f, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file: %w", err)
	}
	return &FileLogger{file: f}, nil
}

// Close flushes and closes the underlying log file.
func (f *FileLogger) Close() error {
	return f.file.Close()
}

func (f *FileLogger) write(event string, fields map[string]any) {
	fields["event"] = event
	fields["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)

	f.mu.Lock()
	defer f.mu.Unlock()
	enc := json.NewEncoder(f.file)
	_ = enc.Encode(fields)
}

func (f *FileLogger) LogWaveStart(wave models.Wave) {
	f.write("wave.start", map[string]any{"wave": wave.Number, "task_count": len(wave.TaskIDs), "cap": wave.MaxParallelAgents})
}

func (f *FileLogger) LogWaveComplete(wave models.Wave, duration time.Duration, completed, failed int) {
	f.write("wave.complete", map[string]any{"wave": wave.Number, "duration_ms": duration.Milliseconds(), "completed": completed, "failed": failed})
}

func (f *FileLogger) LogTaskStarted(task models.Task, agentID string) {
	f.write("task.start", map[string]any{"task_id": task.ID, "agent_id": agentID})
}

func (f *FileLogger) LogTaskResult(task models.Task, class models.ErrorClass, message string) {
	f.write("task.result", map[string]any{"task_id": task.ID, "class": string(class), "message": message})
}

func (f *FileLogger) LogEscalation(e models.Escalation) {
	f.write("task.escalated", map[string]any{"task_id": e.TaskID, "reason": string(e.Reason)})
}

func (f *FileLogger) LogAgentStuck(a models.AgentInstance) {
	f.write("agent.stuck", map[string]any{"agent_id": a.ID, "task_id": a.CurrentTaskID})
}
