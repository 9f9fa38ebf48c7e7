package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foreman-sh/foreman/internal/models"
	"github.com/foreman-sh/foreman/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertAndGetTask(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	task := models.NewTask("t1", "T-1", "title", "desc", models.CategoryFeature, models.EffortSmall, "")
	require.NoError(t, db.InsertTask(ctx, task))

	got, err := db.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, task.Title, got.Title)
	assert.Equal(t, models.EvaluationQueuePlacement, got.Placement)
}

func TestGetTaskNotFound(t *testing.T) {
	db := openTestStore(t)
	_, err := db.GetTask(context.Background(), "missing")
	assert.Error(t, err)
}

func TestListTasksByPlacement(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	for i := 0; i < 3; i++ {
		id := string(rune('a' + i))
		task := models.NewTask(id, "T-"+id, "title "+id, "desc", models.CategoryTask, models.EffortSmall, "")
		require.NoError(t, db.InsertTask(ctx, task))
	}

	tasks, err := db.ListTasksByPlacement(ctx, models.EvaluationQueuePlacement, store.Paging{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, tasks, 3)
}

func TestAcquireListLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	require.NoError(t, db.AcquireListLock(ctx, "list1", "owner-a"))
	err := db.AcquireListLock(ctx, "list1", "owner-b")
	assert.Error(t, err)

	owner, err := db.ListLockOwner(ctx, "list1")
	require.NoError(t, err)
	assert.Equal(t, "owner-a", owner)

	require.NoError(t, db.ReleaseListLock(ctx, "list1", "owner-a"))
	require.NoError(t, db.AcquireListLock(ctx, "list1", "owner-b"))
}

func TestIncrementCompletedTasks(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	list := models.NewTaskList("l1", "list one", "", 3)
	require.NoError(t, db.InsertTaskList(ctx, list))

	n, err := db.IncrementCompletedTasks(ctx, "l1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := db.GetTaskList(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.CompletedTasks)
}

func TestUpsertFileImpactAndList(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	task := models.NewTask("t1", "T-1", "title", "desc", models.CategoryTask, models.EffortSmall, "")
	require.NoError(t, db.InsertTask(ctx, task))

	fi := models.FileImpact{TaskID: "t1", Path: "main.go", Operation: models.OpUpdate, Confidence: 0.5, Source: models.SourceAIEstimate}
	require.NoError(t, db.UpsertFileImpact(ctx, fi))

	impacts, err := db.ListFileImpacts(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, impacts, 1)
	assert.Equal(t, "main.go", impacts[0].Path)

	fi.Confidence = 0.9
	require.NoError(t, db.UpsertFileImpact(ctx, fi))
	impacts, err = db.ListFileImpacts(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, impacts, 1)
	assert.InDelta(t, 0.9, impacts[0].Confidence, 0.001)
}
