package models

import "time"

// ExecutionStatus mirrors the orchestrator's per-execution state machine
// (§4.6): CREATED -> PLANNING -> RUNNING -> (PAUSED <-> RUNNING) ->
// COMPLETED, with FAILED/CANCELLED as alternate terminal states.
type ExecutionStatus string

const (
	ExecutionCreated   ExecutionStatus = "created"
	ExecutionPlanning  ExecutionStatus = "planning"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionPaused    ExecutionStatus = "paused"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// Terminal states an execution run does not leave once entered.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionCompleted, ExecutionFailed, ExecutionCancelled:
		return true
	default:
		return false
	}
}

// ExecutionRun is a single attempt to drain a list's waves. At most one
// non-terminal run exists per list at a time (§3).
type ExecutionRun struct {
	ID        string
	ListID    string
	RunNumber int
	Status    ExecutionStatus

	WavePointer int // 1-based index of the wave currently draining

	StartedAt   time.Time
	EndedAt     *time.Time
	Completed   int
	Failed      int
	TotalTasks  int
}

// NewExecutionRun constructs a freshly CREATED run; workers are not
// allocated until approval transitions it to PLANNING (§4.6).
func NewExecutionRun(id, listID string, runNumber, totalTasks int) ExecutionRun {
	return ExecutionRun{
		ID:         id,
		ListID:     listID,
		RunNumber:  runNumber,
		Status:     ExecutionCreated,
		TotalTasks: totalTasks,
		StartedAt:  time.Now().UTC(),
	}
}

// Finish stamps EndedAt and the final status. Status must be terminal.
func (r *ExecutionRun) Finish(status ExecutionStatus) {
	now := time.Now().UTC()
	r.Status = status
	r.EndedAt = &now
}
