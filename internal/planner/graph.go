// Package planner computes execution waves for a task list: a
// topological layering of the dependency graph further split so that no
// two tasks with conflicting file impacts land in the same wave (§4.4).
package planner

import (
	"github.com/foreman-sh/foreman/internal/models"
)

// DependencyGraph is a directed graph of task ids: an edge dep -> task
// means dep must complete before task may start (adapted from the
// teacher's executor.DependencyGraph, generalized from task-number
// strings to task ids and dependencies supplied as relationships rather
// than inline task fields).
type DependencyGraph struct {
	Tasks    map[string]models.Task
	Edges    map[string][]string // prerequisite -> dependents
	InDegree map[string]int
}

// BuildDependencyGraph constructs a graph from a task set and the
// depends_on relationships among them. A relationship whose source task
// is outside the set is skipped; one whose source is in the set but whose
// target is outside it is rejected with UnknownDependencyError, since a
// dangling edge would otherwise silently under-constrain the plan.
func BuildDependencyGraph(tasks []models.Task, relationships []models.TaskRelationship) (*DependencyGraph, error) {
	g := &DependencyGraph{
		Tasks:    make(map[string]models.Task, len(tasks)),
		Edges:    make(map[string][]string),
		InDegree: make(map[string]int, len(tasks)),
	}

	for _, t := range tasks {
		g.Tasks[t.ID] = t
		g.InDegree[t.ID] = 0
	}

	for _, rel := range relationships {
		if rel.Type != models.RelationshipDependsOn {
			continue
		}
		if _, ok := g.Tasks[rel.SourceTaskID]; !ok {
			continue
		}
		if _, ok := g.Tasks[rel.TargetTaskID]; !ok {
			return nil, &UnknownDependencyError{TaskID: rel.SourceTaskID, DependsOn: rel.TargetTaskID}
		}
		// TargetTaskID must complete before SourceTaskID runs.
		g.Edges[rel.TargetTaskID] = append(g.Edges[rel.TargetTaskID], rel.SourceTaskID)
		g.InDegree[rel.SourceTaskID]++
	}

	return g, nil
}

// HasCycle detects a circular dependency via DFS with three-color
// marking, returning one task id on the cycle if found.
func (g *DependencyGraph) HasCycle() (string, bool) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	colors := make(map[string]int, len(g.Tasks))
	for id := range g.Tasks {
		colors[id] = white
	}

	var cycleNode string
	var dfs func(string) bool
	dfs = func(node string) bool {
		colors[node] = gray
		for _, neighbor := range g.Edges[node] {
			if colors[neighbor] == gray {
				cycleNode = neighbor
				return true
			}
			if colors[neighbor] == white && dfs(neighbor) {
				return true
			}
		}
		colors[node] = black
		return false
	}

	for id := range g.Tasks {
		if colors[id] == white {
			if dfs(id) {
				return cycleNode, true
			}
		}
	}
	return "", false
}
