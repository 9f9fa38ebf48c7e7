package logger

import (
	"time"

	"github.com/foreman-sh/foreman/internal/models"
)

// Sink is the orchestrator.Logger contract, restated here so this
// package doesn't import internal/orchestrator.
type Sink interface {
	LogWaveStart(wave models.Wave)
	LogWaveComplete(wave models.Wave, duration time.Duration, completed, failed int)
	LogTaskStarted(task models.Task, agentID string)
	LogTaskResult(task models.Task, class models.ErrorClass, message string)
	LogEscalation(e models.Escalation)
	LogAgentStuck(a models.AgentInstance)
}

// MultiLogger fans every call out to each sink in order, so the daemon
// can log to the console and a durable JSONL file at once.
type MultiLogger struct {
	sinks []Sink
}

// NewMultiLogger returns a MultiLogger writing to each of sinks.
func NewMultiLogger(sinks ...Sink) *MultiLogger {
	return &MultiLogger{sinks: sinks}
}

func (m *MultiLogger) LogWaveStart(wave models.Wave) {
	for _, s := range m.sinks {
		s.LogWaveStart(wave)
	}
}

func (m *MultiLogger) LogWaveComplete(wave models.Wave, duration time.Duration, completed, failed int) {
	for _, s := range m.sinks {
		s.LogWaveComplete(wave, duration, completed, failed)
	}
}

func (m *MultiLogger) LogTaskStarted(task models.Task, agentID string) {
	for _, s := range m.sinks {
		s.LogTaskStarted(task, agentID)
	}
}

func (m *MultiLogger) LogTaskResult(task models.Task, class models.ErrorClass, message string) {
	for _, s := range m.sinks {
		s.LogTaskResult(task, class, message)
	}
}

func (m *MultiLogger) LogEscalation(e models.Escalation) {
	for _, s := range m.sinks {
		s.LogEscalation(e)
	}
}

func (m *MultiLogger) LogAgentStuck(a models.AgentInstance) {
	for _, s := range m.sinks {
		s.LogAgentStuck(a)
	}
}
