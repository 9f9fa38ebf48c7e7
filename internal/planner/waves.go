package planner

import (
	"sort"

	"github.com/foreman-sh/foreman/internal/models"
)

// ImpactLookup returns a task's current merged file impacts, used to
// detect conflicts while building a wave.
type ImpactLookup func(taskID string) []models.FileImpact

// CalculateWaves computes execution waves for a list using Kahn's
// algorithm (adapted from the teacher's executor.CalculateWaves),
// generalized in two ways: ties within a ready set break on priority
// desc, effort asc, id asc (§4.4) rather than numeric task order, and a
// ready task whose file impacts conflict with one already placed in the
// current wave is deferred to the next wave instead of raising an error.
func CalculateWaves(tasks []models.Task, relationships []models.TaskRelationship, impactsOf ImpactLookup, listCap int) ([]models.Wave, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	graph, err := BuildDependencyGraph(tasks, relationships)
	if err != nil {
		return nil, err
	}
	if node, cyclic := graph.HasCycle(); cyclic {
		return nil, &CycleError{TaskID: node}
	}

	inDegree := make(map[string]int, len(graph.InDegree))
	for id, d := range graph.InDegree {
		inDegree[id] = d
	}

	var waves []models.Wave
	waveNumber := 1
	for len(inDegree) > 0 {
		ready := make([]string, 0)
		for id, degree := range inDegree {
			if degree == 0 {
				ready = append(ready, id)
			}
		}
		if len(ready) == 0 {
			// every remaining task has a nonzero in-degree with no cycle:
			// unreachable given the earlier cycle check, but fail closed.
			return nil, &CycleError{TaskID: firstKey(inDegree)}
		}

		sortReady(ready, graph.Tasks)

		waveTaskIDs := make([]string, 0, len(ready))
		var placedImpacts [][]models.FileImpact
		var deferred []string

		for _, id := range ready {
			impacts := impactsOf(id)
			conflicted := false
			for _, other := range placedImpacts {
				if Conflicts(impacts, other) {
					conflicted = true
					break
				}
			}
			if conflicted {
				deferred = append(deferred, id)
				continue
			}
			waveTaskIDs = append(waveTaskIDs, id)
			placedImpacts = append(placedImpacts, impacts)
		}

		// A ready set that conflicts entirely with itself still must make
		// progress: if nothing was placed, force the single highest
		// priority task through rather than looping forever.
		if len(waveTaskIDs) == 0 && len(deferred) > 0 {
			waveTaskIDs = append(waveTaskIDs, deferred[0])
			deferred = deferred[1:]
		}

		waves = append(waves, models.NewWave("", waveNumber, waveTaskIDs, listCap))
		waveNumber++

		for _, id := range waveTaskIDs {
			delete(inDegree, id)
			for _, dependent := range graph.Edges[id] {
				if _, exists := inDegree[dependent]; exists {
					inDegree[dependent]--
				}
			}
		}
	}

	return waves, nil
}

// sortReady orders a ready set by priority desc, effort asc, id asc —
// the planner's tie-break rule (§4.4).
func sortReady(ready []string, tasks map[string]models.Task) {
	sort.Slice(ready, func(i, j int) bool {
		a, b := tasks[ready[i]], tasks[ready[j]]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Effort.Rank() != b.Effort.Rank() {
			return a.Effort.Rank() < b.Effort.Rank()
		}
		return a.ID < b.ID
	})
}

func firstKey(m map[string]int) string {
	for k := range m {
		return k
	}
	return ""
}
