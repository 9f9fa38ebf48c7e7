package models

import "errors"

// TaskListStatus tracks the lifecycle of an ordered bag of tasks.
type TaskListStatus string

const (
	TaskListStatusDraft     TaskListStatus = "draft"
	TaskListStatusReady     TaskListStatus = "ready"
	TaskListStatusRunning   TaskListStatus = "running"
	TaskListStatusPaused    TaskListStatus = "paused"
	TaskListStatusCompleted TaskListStatus = "completed"
	TaskListStatusFailed    TaskListStatus = "failed"
)

// TaskList is an ordered, named group of tasks ready for execution.
type TaskList struct {
	ID        string
	Name      string
	ProjectID string
	Status    TaskListStatus

	TotalTasks     int
	CompletedTasks int
	FailedTasks    int

	MaxParallelAgents int // cap on concurrent agents for this list
	WaveCount         int
}

// NewTaskList constructs a draft list with a default agent cap.
func NewTaskList(id, name, projectID string, maxParallelAgents int) TaskList {
	if maxParallelAgents <= 0 {
		maxParallelAgents = 3
	}
	return TaskList{
		ID:                id,
		Name:              name,
		ProjectID:         projectID,
		Status:            TaskListStatusDraft,
		MaxParallelAgents: maxParallelAgents,
	}
}

// Validate enforces completed + failed <= total (§3 TaskList invariant).
func (l *TaskList) Validate() error {
	if l.ID == "" {
		return errors.New("task list id is required")
	}
	if l.CompletedTasks+l.FailedTasks > l.TotalTasks {
		return errors.New("completed + failed tasks must not exceed total tasks")
	}
	return nil
}

// IsDrained reports whether every task in the list has reached a terminal
// state, i.e. completed + failed == total.
func (l *TaskList) IsDrained() bool {
	return l.CompletedTasks+l.FailedTasks == l.TotalTasks
}
