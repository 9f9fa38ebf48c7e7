package planner

import "fmt"

// CycleError reports that the dependency graph contains a circular
// dependency, naming one task on the cycle to help the user find it.
type CycleError struct {
	TaskID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected involving task %s", e.TaskID)
}

// UnknownDependencyError reports a relationship pointing at a task that
// is not part of the list being planned.
type UnknownDependencyError struct {
	TaskID   string
	DependsOn string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("task %s depends on unknown task %s", e.TaskID, e.DependsOn)
}
