// Package orchestrator drives one task list's execution run: approval gate,
// wave-by-wave dispatch to worker agents, retry/escalation decisions and
// stuck-agent detection (§4.6, grounded on the teacher's
// executor.WaveExecutor/ExecutePlan sequential-wave loop, generalized from a
// single in-process run to a resumable, store-backed state machine).
package orchestrator

import (
	"fmt"

	"github.com/foreman-sh/foreman/internal/models"
)

// transitions enumerates every legal ExecutionStatus edge (§4.6):
// created -> planning -> running <-> paused -> completed/failed/cancelled.
var transitions = map[models.ExecutionStatus]map[models.ExecutionStatus]bool{
	models.ExecutionCreated: {
		models.ExecutionPlanning:  true,
		models.ExecutionCancelled: true,
	},
	models.ExecutionPlanning: {
		models.ExecutionRunning:   true,
		models.ExecutionFailed:    true,
		models.ExecutionCancelled: true,
	},
	models.ExecutionRunning: {
		models.ExecutionPaused:    true,
		models.ExecutionCompleted: true,
		models.ExecutionFailed:    true,
		models.ExecutionCancelled: true,
	},
	models.ExecutionPaused: {
		models.ExecutionRunning:   true,
		models.ExecutionCancelled: true,
	},
}

// ErrIllegalTransition reports an attempt to move an execution run between
// two states the state machine does not permit.
type ErrIllegalTransition struct {
	From, To models.ExecutionStatus
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("orchestrator: illegal transition %s -> %s", e.From, e.To)
}

// transition validates and applies a status change in place.
func transition(run *models.ExecutionRun, to models.ExecutionStatus) error {
	if run.Status == to {
		return nil
	}
	allowed, ok := transitions[run.Status]
	if !ok || !allowed[to] {
		return &ErrIllegalTransition{From: run.Status, To: to}
	}
	if to.Terminal() {
		run.Finish(to)
		return nil
	}
	run.Status = to
	return nil
}
