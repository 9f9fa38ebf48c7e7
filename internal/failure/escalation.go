package failure

import (
	"encoding/json"
	"time"

	"github.com/foreman-sh/foreman/internal/models"
)

// failureContext is the serialised payload attached to an escalation:
// enough of the recent failure history for the knowledge-base analysis
// worker to reason about the task without re-querying the store (§4.5).
type failureContext struct {
	Attempt         int       `json:"attempt"`
	Step            string    `json:"step,omitempty"`
	FilePath        string    `json:"file_path,omitempty"`
	RecentMessages  []string  `json:"recent_messages"`
	StdoutTail      string    `json:"stdout_tail,omitempty"`
	StderrTail      string    `json:"stderr_tail,omitempty"`
	ClassifiedClass string    `json:"classified_class"`
	Timestamp       time.Time `json:"timestamp"`
}

// BuildEscalation constructs an Escalation record ready for persistence,
// serialising the failure context the knowledge-base worker needs. The
// caller must set the returned record's ListID before persisting it.
func BuildEscalation(id string, latest models.FailureRecord, reason models.EscalationReason, recent []models.FailureRecord) models.Escalation {
	messages := make([]string, 0, len(recent))
	for _, f := range recent {
		messages = append(messages, f.Message)
	}

	payload := failureContext{
		Attempt:         latest.Attempt,
		Step:            latest.Step,
		FilePath:        latest.FilePath,
		RecentMessages:  messages,
		StdoutTail:      latest.StdoutTail,
		StderrTail:      latest.StderrTail,
		ClassifiedClass: string(latest.Class),
		Timestamp:       latest.Timestamp,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		body = []byte(`{}`)
	}

	return models.NewEscalation(id, latest.TaskID, "", reason, string(body))
}
