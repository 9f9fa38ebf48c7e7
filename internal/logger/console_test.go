package logger

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/foreman-sh/foreman/internal/models"
)

func TestConsoleLoggerFiltersBelowLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewConsoleLogger(buf, "warn")

	log.LogTaskStarted(models.Task{ShortID: "T-1"}, "agent-1")
	assert.Empty(t, buf.String(), "debug-level LogTaskStarted should be filtered out at warn level")

	log.LogAgentStuck(models.AgentInstance{ID: "agent-1", CurrentTaskID: "T-1"})
	assert.Contains(t, buf.String(), "agent-1")
}

func TestConsoleLoggerWaveComplete(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewConsoleLogger(buf, "info")

	wave := models.NewWave("exec-1", 1, []string{"t1", "t2"}, 2)
	log.LogWaveComplete(wave, 250*time.Millisecond, 2, 0)

	out := buf.String()
	assert.Contains(t, out, "wave 1 finished")
	assert.Contains(t, out, "2 completed")
}

func TestConsoleLoggerNoColorForNonTTYWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewConsoleLogger(buf, "info")
	assert.False(t, log.useColor)
}
