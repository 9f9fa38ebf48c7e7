package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foreman-sh/foreman/internal/models"
)

func TestNewTaskDefaultsToEvaluationQueue(t *testing.T) {
	task := models.NewTask("t1", "T-1", "title", "desc", models.CategoryFeature, models.EffortMedium, "p1")
	assert.Equal(t, models.EvaluationQueuePlacement, task.Placement)
	assert.Equal(t, models.NoWavePosition, task.WavePosition)
	assert.False(t, task.InList())
	assert.NoError(t, task.Validate())
}

func TestTaskValidateRejectsWavePositionOutsideList(t *testing.T) {
	task := models.NewTask("t1", "T-1", "title", "desc", models.CategoryFeature, models.EffortMedium, "")
	task.WavePosition = 0
	assert.Error(t, task.Validate())
}

func TestMoveToListClearsWavePosition(t *testing.T) {
	task := models.NewTask("t1", "T-1", "title", "desc", models.CategoryFeature, models.EffortMedium, "")
	task.MoveToList("list-1")
	assert.True(t, task.InList())
	assert.Equal(t, models.NoWavePosition, task.WavePosition)
}

func TestRecordFailureThenSuccessResetsCounter(t *testing.T) {
	task := models.NewTask("t1", "T-1", "title", "desc", models.CategoryFeature, models.EffortMedium, "")
	task.RecordFailure(string(models.ClassTransient), "boom")
	assert.Equal(t, 1, task.ConsecutiveFailures)
	assert.Equal(t, 1, task.AttemptCount)

	task.RecordSuccess()
	assert.Equal(t, 0, task.ConsecutiveFailures)
	assert.Equal(t, models.TaskStatusCompleted, task.Status)
	assert.True(t, task.IsTerminal())
}

func TestEffortRankOrdersAscending(t *testing.T) {
	assert.Less(t, models.EffortTrivial.Rank(), models.EffortSmall.Rank())
	assert.Less(t, models.EffortLarge.Rank(), models.EffortEpic.Rank())
}

func TestNewWaveCapsParallelismToWaveSize(t *testing.T) {
	wave := models.NewWave("exec1", 1, []string{"t1", "t2"}, 5)
	require.Equal(t, 2, wave.MaxParallelAgents)
	assert.Equal(t, models.WaveStatusPending, wave.Status)
}

func TestTaskListIsDrained(t *testing.T) {
	list := models.NewTaskList("l1", "name", "", 3)
	list.TotalTasks = 3
	list.CompletedTasks = 2
	list.FailedTasks = 1
	assert.True(t, list.IsDrained())
	assert.NoError(t, list.Validate())
}
