package agentproc_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foreman-sh/foreman/internal/agentproc"
)

// writeFakeWorker drops an executable shell script standing in for a
// worker binary: the script runs the shell body the caller passes.
func writeFakeWorker(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "worker.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestSpawnerRunStreamsEvents(t *testing.T) {
	bin := writeFakeWorker(t, `
cat >/dev/null
echo '{"event":"task.started","task_id":"t1","timestamp":"2026-01-01T00:00:00Z"}'
echo '{"event":"task.completed","task_id":"t1","exit_code":0,"timestamp":"2026-01-01T00:00:01Z"}'
`)

	spawner := agentproc.NewSpawner(bin)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := spawner.Run(ctx, agentproc.TaskRequest{TaskID: "t1", Title: "do the thing"})
	require.NoError(t, err)

	var seen []agentproc.Event
	for ev := range events {
		seen = append(seen, ev)
	}

	require.Len(t, seen, 2)
	assert.Equal(t, agentproc.EventTaskStarted, seen[0].Type)
	assert.Equal(t, agentproc.EventTaskCompleted, seen[1].Type)
	assert.Equal(t, 0, seen[1].ExitCode)
}

func TestSpawnerRunSkipsMalformedLines(t *testing.T) {
	bin := writeFakeWorker(t, `
cat >/dev/null
echo 'not json'
echo '{"event":"task.failed","task_id":"t1","exit_code":1,"timestamp":"2026-01-01T00:00:01Z"}'
`)

	spawner := agentproc.NewSpawner(bin)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := spawner.Run(ctx, agentproc.TaskRequest{TaskID: "t1"})
	require.NoError(t, err)

	var seen []agentproc.Event
	for ev := range events {
		seen = append(seen, ev)
	}

	require.Len(t, seen, 1)
	assert.Equal(t, agentproc.EventTaskFailed, seen[0].Type)
	assert.Equal(t, 1, seen[0].ExitCode)
}

func TestSpawnerRunKillsWorkerOnContextCancel(t *testing.T) {
	bin := writeFakeWorker(t, `
cat >/dev/null
echo '{"event":"agent.heartbeat","task_id":"t1","timestamp":"2026-01-01T00:00:00Z"}'
sleep 30
`)

	spawner := agentproc.NewSpawner(bin)
	ctx, cancel := context.WithCancel(context.Background())

	events, err := spawner.Run(ctx, agentproc.TaskRequest{TaskID: "t1"})
	require.NoError(t, err)

	first := <-events
	assert.Equal(t, agentproc.EventHeartbeat, first.Type)

	cancel()

	done := make(chan struct{})
	go func() {
		for range events {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(8 * time.Second):
		t.Fatal("worker was not terminated after context cancellation")
	}
}
