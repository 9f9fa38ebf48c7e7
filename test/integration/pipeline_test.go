// Package integration exercises the store, planner, grouping, file-impact
// analyser, chat dispatcher and command loop together against a real
// in-memory sqlite store, the way the teacher's test/integration suite
// exercises its wave executor end to end.
package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foreman-sh/foreman/internal/chat"
	"github.com/foreman-sh/foreman/internal/commandloop"
	"github.com/foreman-sh/foreman/internal/fileimpact"
	"github.com/foreman-sh/foreman/internal/grouping"
	"github.com/foreman-sh/foreman/internal/models"
	"github.com/foreman-sh/foreman/internal/planner"
	"github.com/foreman-sh/foreman/internal/store"
)

// TestTaskIntakeThroughWavePlanning drives a task from /newtask intake
// through file-impact prediction, list placement, and wave planning,
// asserting the pieces agree with each other at every handoff.
func TestTaskIntakeThroughWavePlanning(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	learning := fileimpact.NewLearningStore(db.DB())
	analyser := fileimpact.NewAnalyser(learning)
	engine := grouping.NewEngine(grouping.DefaultConfig)
	suggestions := grouping.NewSuggestionStore(db)
	handler := commandloop.New(db, nil, nil, analyser, engine, suggestions)

	reply := handler.HandleMessage(ctx, "system", "chan-1", "/newtask add retry backoff to the upload handler")
	require.Contains(t, reply, "created T-")

	reply = handler.HandleMessage(ctx, "system", "chan-1", "/newtask add retry backoff to the download handler")
	require.Contains(t, reply, "created T-")

	tasks, err := db.ListTasksByPlacement(ctx, commandloop.EvaluationQueuePlacement, store.Paging{Limit: 10})
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	impacts := analyser.Predict(tasks[0].ID, tasks[0].Category, tasks[0].Title, tasks[0].Description, nil)
	require.NotEmpty(t, impacts)
	var sawRetryImpact bool
	for _, imp := range impacts {
		require.NoError(t, db.UpsertFileImpact(ctx, models.FileImpact{
			TaskID: tasks[0].ID, Path: imp.Path, Operation: imp.Operation,
			Confidence: imp.Confidence, Source: imp.Source,
		}))
		if imp.Path == "internal/failure/**" {
			sawRetryImpact = true
		}
	}
	assert.True(t, sawRetryImpact)

	list := models.NewTaskList("list-1", "retry work", "", 3)
	require.NoError(t, db.InsertTaskList(ctx, list))
	for i := range tasks {
		tasks[i].MoveToList(list.ID)
		require.NoError(t, db.UpdateTask(ctx, tasks[i]))
	}

	taskIDs := []string{tasks[0].ID, tasks[1].ID}
	rels, err := db.ListRelationshipsForTasks(ctx, taskIDs)
	require.NoError(t, err)

	lookup := func(id string) []models.FileImpact {
		impacts, err := db.ListFileImpacts(ctx, id)
		require.NoError(t, err)
		return impacts
	}

	waves, err := planner.CalculateWaves(tasks, rels, lookup, list.MaxParallelAgents)
	require.NoError(t, err)
	// Both tasks predict writes to internal/**/*.go and internal/failure/**,
	// so the planner defers the second one to its own wave.
	require.Len(t, waves, 2)
	require.Len(t, waves[0].TaskIDs, 1)
	require.Len(t, waves[1].TaskIDs, 1)
	assert.ElementsMatch(t, taskIDs, []string{waves[0].TaskIDs[0], waves[1].TaskIDs[0]})
}

// TestGroupingSuggestionLifecycle proposes a cluster and walks it through
// accept, asserting the suggestion store's status transition and the
// chat dispatcher delivering a notification about it.
func TestGroupingSuggestionLifecycle(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	engine := grouping.NewEngine(grouping.DefaultConfig)
	suggestions := grouping.NewSuggestionStore(db)

	tasks := []models.Task{
		models.NewTask("t1", "T-1", "add retry backoff", "implement retry", models.CategoryFeature, models.EffortSmall, ""),
		models.NewTask("t2", "T-2", "add retry backoff delay", "implement backoff", models.CategoryFeature, models.EffortSmall, ""),
	}
	for _, task := range tasks {
		require.NoError(t, db.InsertTask(ctx, task))
	}

	features := []grouping.TaskFeatures{
		{TaskID: "t1", Title: tasks[0].Title, Description: tasks[0].Description, Category: tasks[0].Category,
			Components: []string{"failure"}, FilePaths: []string{"internal/failure/backoff.go"}},
		{TaskID: "t2", Title: tasks[1].Title, Description: tasks[1].Description, Category: tasks[1].Category,
			Components: []string{"failure"}, FilePaths: []string{"internal/failure/backoff.go"}},
	}
	clusters := engine.Cluster(features)
	require.Len(t, clusters, 1)

	suggestion, err := suggestions.Propose(ctx, clusters[0], "retry & backoff work")
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionPending, suggestion.Status)

	require.NoError(t, suggestions.Accept(ctx, suggestion.ID))

	got, err := db.GetGroupingSuggestion(ctx, suggestion.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionAccepted, got.Status)
}

// TestChatDispatcherChunksLongMessages exercises the dispatcher's render
// and chunk pipeline against a fake transport, mirroring how an
// operator-visible wave summary reaches the chat channel.
func TestChatDispatcherChunksLongMessages(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	reg := chat.NewRegistry("system")
	transport := &recordingTransport{bot: "system", healthy: true}
	reg.Register(transport)

	dispatcher := chat.NewDispatcher(reg, db, 1000, 0, 40)

	body := "wave 1 started\n" + repeat("line of progress output\n", 10)
	err = dispatcher.Send(ctx, "system", "chan-1", "wave", body, chat.ChatRefs{ListID: "list-1"})
	require.NoError(t, err)

	assert.Greater(t, len(transport.sent), 1, "expected the long message to be chunked across multiple sends")

	msgs, err := db.RecentChatMessages(ctx, "chan-1", 10)
	require.NoError(t, err)
	assert.Len(t, msgs, len(transport.sent))
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}

type recordingTransport struct {
	bot     string
	healthy bool
	sent    []string
}

func (r *recordingTransport) BotType() string { return r.bot }

func (r *recordingTransport) Send(ctx context.Context, channelID, text string) (string, error) {
	r.sent = append(r.sent, text)
	return "up-id", nil
}

func (r *recordingTransport) Healthy(ctx context.Context) bool { return r.healthy }
