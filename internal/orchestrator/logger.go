package orchestrator

import (
	"time"

	"github.com/foreman-sh/foreman/internal/models"
)

// Logger is the subset of observability calls the wave loop makes,
// narrowed from the teacher's executor.Logger interface down to the
// events this domain actually produces (no QC/budget/TTS hooks).
// internal/logger provides the console and file implementations.
type Logger interface {
	LogWaveStart(wave models.Wave)
	LogWaveComplete(wave models.Wave, duration time.Duration, completed, failed int)
	LogTaskStarted(task models.Task, agentID string)
	LogTaskResult(task models.Task, class models.ErrorClass, message string)
	LogEscalation(e models.Escalation)
	LogAgentStuck(a models.AgentInstance)
}
