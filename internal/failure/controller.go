package failure

import (
	"github.com/foreman-sh/foreman/internal/models"
)

// DefaultMaxConsecutiveFailures escalates a task once its consecutive
// failure counter reaches this value, regardless of class (§4.5).
const DefaultMaxConsecutiveFailures = 3

// DecisionKind is the controller's verdict for one failed attempt.
type DecisionKind string

const (
	DecisionRetry    DecisionKind = "retry"
	DecisionSkip     DecisionKind = "skip"
	DecisionEscalate DecisionKind = "escalate"
	DecisionAbort    DecisionKind = "abort"
)

// Decision tells the wave loop what to do next with a failed task.
type Decision struct {
	Kind   DecisionKind
	Delay  int64 // retry delay in milliseconds, only set for DecisionRetry
	Reason models.EscalationReason
}

// Controller decides retry(delayMs)/skip/escalate(reason)/abort for a
// failed task attempt, tracking consecutive failures and a no-progress
// heuristic over recent failure history (§4.5).
type Controller struct {
	maxConsecutiveFailures int
}

// NewController builds a Controller; maxConsecutiveFailures <= 0 falls
// back to DefaultMaxConsecutiveFailures.
func NewController(maxConsecutiveFailures int) *Controller {
	if maxConsecutiveFailures <= 0 {
		maxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	return &Controller{maxConsecutiveFailures: maxConsecutiveFailures}
}

// Decide classifies the latest failure and combines it with the task's
// consecutive-failure count and recent failure history to pick a
// decision. recentFailures is the most recent failures for this task,
// newest first, including the one just recorded for this attempt.
func (c *Controller) Decide(task models.Task, classification Classification, recentFailures []models.FailureRecord) Decision {
	if noProgress(recentFailures) {
		return Decision{Kind: DecisionEscalate, Reason: models.ReasonNoProgress}
	}

	nextConsecutive := task.ConsecutiveFailures + 1
	if nextConsecutive >= c.maxConsecutiveFailures {
		return Decision{Kind: DecisionEscalate, Reason: models.ReasonMaxRetriesExceeded}
	}

	if classification.Class == models.ClassPermanent {
		return Decision{Kind: DecisionSkip}
	}

	if classification.Class == models.ClassUnknown && task.LastErrorClass == string(models.ClassUnknown) {
		// Unknown errors get exactly one grace retry; two in a row with
		// no more specific signal is not worth a third attempt.
		return Decision{Kind: DecisionEscalate, Reason: models.ReasonRepeatedFailure}
	}

	return Decision{Kind: DecisionRetry, Delay: Delay(nextConsecutive).Milliseconds()}
}

// noProgressWindow is how many of the most recent failures the
// no-progress heuristic inspects for an identical message (§4.5).
const noProgressWindow = 3

// noProgress reports whether the noProgressWindow most recent
// FailureRecords for a task — including the one just recorded for this
// attempt — all carry the same message, a sign that retrying is not
// changing anything.
func noProgress(recent []models.FailureRecord) bool {
	if len(recent) < noProgressWindow {
		return false
	}
	first := recent[0].Message
	for _, f := range recent[:noProgressWindow] {
		if f.Message != first {
			return false
		}
	}
	return true
}
