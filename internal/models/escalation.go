package models

import "time"

// EscalationReason names why a task was promoted to the offline
// knowledge-analysis worker (§3, §4.5).
type EscalationReason string

const (
	ReasonMaxRetriesExceeded EscalationReason = "max_retries_exceeded"
	ReasonNoProgress         EscalationReason = "no_progress"
	ReasonRepeatedFailure    EscalationReason = "repeated_failure"
	ReasonPermanentError     EscalationReason = "permanent_error"
)

// Escalation records a task promoted to the knowledge-base analysis
// worker. The orchestrator does not block on analysis (§4.5).
type Escalation struct {
	ID               string
	TaskID           string
	ListID           string
	Reason           EscalationReason
	FailureContext   string // serialised: attempt, last three messages, step, path, tails
	CreatedAt        time.Time
	AnalysedAt       *time.Time
	AnalysisResult   *string
}

// NewEscalation stamps CreatedAt on a fresh escalation record.
func NewEscalation(id, taskID, listID string, reason EscalationReason, failureContext string) Escalation {
	return Escalation{
		ID:             id,
		TaskID:         taskID,
		ListID:         listID,
		Reason:         reason,
		FailureContext: failureContext,
		CreatedAt:      time.Now().UTC(),
	}
}

// MarkAnalysed records the knowledge-analysis worker's asynchronous
// result.
func (e *Escalation) MarkAnalysed(result string) {
	now := time.Now().UTC()
	e.AnalysedAt = &now
	e.AnalysisResult = &result
}
