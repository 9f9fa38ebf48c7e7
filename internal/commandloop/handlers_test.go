package commandloop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foreman-sh/foreman/internal/fileimpact"
	"github.com/foreman-sh/foreman/internal/grouping"
	"github.com/foreman-sh/foreman/internal/store"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	analyser := fileimpact.NewAnalyser(fileimpact.NewLearningStore(db.DB()))
	engine := grouping.NewEngine(grouping.DefaultConfig)
	suggestions := grouping.NewSuggestionStore(db)

	return New(db, nil, nil, analyser, engine, suggestions)
}

func TestNewTaskCreatesQueuedTask(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	reply := h.HandleMessage(ctx, "system", "chan-1", "/newtask add retry logic to the upload handler")
	assert.Contains(t, reply, "created T-")

	queueReply := h.HandleMessage(ctx, "system", "chan-1", "/queue")
	assert.Contains(t, queueReply, "1 tasks")
}

func TestEditFollowUpUpdatesFields(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	h.HandleMessage(ctx, "system", "chan-1", "/newtask initial title")
	queueReply := h.HandleMessage(ctx, "system", "chan-1", "/queue")
	require.Contains(t, queueReply, "T-")

	tasks, err := h.DB.ListTasksByPlacement(ctx, EvaluationQueuePlacement, store.Paging{Limit: 10})
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	editReply := h.HandleMessage(ctx, "system", "chan-1", "/edit "+tasks[0].ID)
	assert.Contains(t, editReply, "editing")

	updateReply := h.HandleMessage(ctx, "system", "chan-1", "title: a much better title\npriority: 9")
	assert.Contains(t, updateReply, "title")
	assert.Contains(t, updateReply, "priority")

	updated, err := h.DB.GetTask(ctx, tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "a much better title", updated.Title)
	assert.Equal(t, 9, updated.Priority)
}

func TestOverrideAddsUserDeclaredImpact(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	h.HandleMessage(ctx, "system", "chan-1", "/newtask wire up the new endpoint")
	tasks, err := h.DB.ListTasksByPlacement(ctx, EvaluationQueuePlacement, store.Paging{Limit: 10})
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	reply := h.HandleMessage(ctx, "system", "chan-1", "/override "+tasks[0].ID+" CREATE internal/api/handler.go")
	assert.Contains(t, reply, "overrode CREATE")

	impacts, err := h.DB.ListFileImpacts(ctx, tasks[0].ID)
	require.NoError(t, err)
	// /newtask already stored two predictions (the task template's
	// internal/**/*.go and the "endpoint" keyword's internal/api/**);
	// rows come back ordered by path, so the override is last.
	require.Len(t, impacts, 3)
	assert.Equal(t, "internal/api/handler.go", impacts[2].Path)
	assert.Equal(t, "user_declared", string(impacts[2].Source))
	assert.Equal(t, 1.0, impacts[2].Confidence)
}

func TestQueueReportsEmpty(t *testing.T) {
	h := newTestHandler(t)
	reply := h.HandleMessage(context.Background(), "system", "chan-1", "/queue")
	assert.Contains(t, reply, "empty")
}
