package planner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foreman-sh/foreman/internal/models"
	"github.com/foreman-sh/foreman/internal/planner"
)

func noImpacts(string) []models.FileImpact { return nil }

func TestCalculateWavesIndependentTasksShareOneWave(t *testing.T) {
	tasks := []models.Task{
		models.NewTask("t1", "T-1", "a", "desc", models.CategoryTask, models.EffortSmall, ""),
		models.NewTask("t2", "T-2", "b", "desc", models.CategoryTask, models.EffortSmall, ""),
	}

	waves, err := planner.CalculateWaves(tasks, nil, noImpacts, 3)
	require.NoError(t, err)
	require.Len(t, waves, 1)
	assert.ElementsMatch(t, []string{"t1", "t2"}, waves[0].TaskIDs)
	assert.Equal(t, 2, waves[0].MaxParallelAgents)
}

func TestCalculateWavesRespectsDependencyOrder(t *testing.T) {
	tasks := []models.Task{
		models.NewTask("t1", "T-1", "a", "desc", models.CategoryTask, models.EffortSmall, ""),
		models.NewTask("t2", "T-2", "b", "desc", models.CategoryTask, models.EffortSmall, ""),
	}
	rels := []models.TaskRelationship{
		{ID: "r1", SourceTaskID: "t2", TargetTaskID: "t1", Type: models.RelationshipDependsOn},
	}

	waves, err := planner.CalculateWaves(tasks, rels, noImpacts, 3)
	require.NoError(t, err)
	require.Len(t, waves, 2)
	assert.Equal(t, []string{"t1"}, waves[0].TaskIDs)
	assert.Equal(t, []string{"t2"}, waves[1].TaskIDs)
}

func TestCalculateWavesSplitsConflictingFileImpacts(t *testing.T) {
	tasks := []models.Task{
		models.NewTask("t1", "T-1", "a", "desc", models.CategoryTask, models.EffortSmall, ""),
		models.NewTask("t2", "T-2", "b", "desc", models.CategoryTask, models.EffortSmall, ""),
	}
	impacts := map[string][]models.FileImpact{
		"t1": {{TaskID: "t1", Path: "main.go", Operation: models.OpUpdate, Confidence: 1}},
		"t2": {{TaskID: "t2", Path: "main.go", Operation: models.OpUpdate, Confidence: 1}},
	}

	waves, err := planner.CalculateWaves(tasks, nil, func(id string) []models.FileImpact {
		return impacts[id]
	}, 3)
	require.NoError(t, err)
	require.Len(t, waves, 2)
}

func TestCalculateWavesCapsParallelism(t *testing.T) {
	tasks := []models.Task{
		models.NewTask("t1", "T-1", "a", "desc", models.CategoryTask, models.EffortSmall, ""),
		models.NewTask("t2", "T-2", "b", "desc", models.CategoryTask, models.EffortSmall, ""),
		models.NewTask("t3", "T-3", "c", "desc", models.CategoryTask, models.EffortSmall, ""),
	}

	waves, err := planner.CalculateWaves(tasks, nil, noImpacts, 2)
	require.NoError(t, err)
	require.Len(t, waves, 1)
	assert.Equal(t, 2, waves[0].MaxParallelAgents)
}

func TestCalculateWavesDetectsCycle(t *testing.T) {
	tasks := []models.Task{
		models.NewTask("t1", "T-1", "a", "desc", models.CategoryTask, models.EffortSmall, ""),
		models.NewTask("t2", "T-2", "b", "desc", models.CategoryTask, models.EffortSmall, ""),
	}
	rels := []models.TaskRelationship{
		{ID: "r1", SourceTaskID: "t1", TargetTaskID: "t2", Type: models.RelationshipDependsOn},
		{ID: "r2", SourceTaskID: "t2", TargetTaskID: "t1", Type: models.RelationshipDependsOn},
	}

	_, err := planner.CalculateWaves(tasks, rels, noImpacts, 3)
	assert.Error(t, err)
}
