package cmd_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foreman-sh/foreman/internal/cmd"
	"github.com/foreman-sh/foreman/internal/models"
	"github.com/foreman-sh/foreman/internal/store"
)

// writeTestConfig drops a minimal foreman.yaml pointing the store at a
// sqlite file under t.TempDir(), so each test gets an isolated database
// without touching the working directory.
func writeTestConfig(t *testing.T) (configPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "foreman.db")
	configPath = filepath.Join(dir, "foreman.yaml")
	content := "store:\n  path: " + dbPath + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	return configPath, dbPath
}

func runCommand(t *testing.T, c *cobra.Command, args []string) string {
	t.Helper()
	var buf bytes.Buffer
	c.SetArgs(args)
	c.SetOut(&buf)
	require.NoError(t, c.Execute())
	return buf.String()
}

func TestMigrateCommandAppliesSchema(t *testing.T) {
	configPath, dbPath := writeTestConfig(t)

	c := cmd.NewMigrateCommand()
	out := runCommand(t, c, []string{"--config", configPath})
	assert.Contains(t, out, "schema applied")

	db, err := store.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
}

func TestQueueCommandReportsEmptyQueue(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	c := cmd.NewQueueCommand()
	out := runCommand(t, c, []string{"--config", configPath})
	assert.Contains(t, out, "evaluation queue is empty")
}

func TestQueueCommandListsTasks(t *testing.T) {
	configPath, dbPath := writeTestConfig(t)

	db, err := store.Open(dbPath)
	require.NoError(t, err)
	task := models.NewTask("t1", "T-1", "title", "desc", models.CategoryTask, models.EffortSmall, "")
	require.NoError(t, db.InsertTask(context.Background(), task))
	require.NoError(t, db.Close())

	c := cmd.NewQueueCommand()
	out := runCommand(t, c, []string{"--config", configPath})
	assert.Contains(t, out, "T-1")
	assert.Contains(t, out, "1 tasks")
}

func TestValidateCommandPrintsWaveLayout(t *testing.T) {
	configPath, dbPath := writeTestConfig(t)

	db, err := store.Open(dbPath)
	require.NoError(t, err)
	ctx := context.Background()
	list := models.NewTaskList("list1", "list one", "", 2)
	require.NoError(t, db.InsertTaskList(ctx, list))
	task := models.NewTask("t1", "T-1", "title", "desc", models.CategoryTask, models.EffortSmall, "")
	task.MoveToList("list1")
	require.NoError(t, db.InsertTask(ctx, task))
	require.NoError(t, db.Close())

	c := cmd.NewValidateCommand()
	out := runCommand(t, c, []string{"list1", "--config", configPath})
	assert.Contains(t, out, "1 tasks, 1 waves")
}

func TestValidateCommandReportsEmptyList(t *testing.T) {
	configPath, dbPath := writeTestConfig(t)

	db, err := store.Open(dbPath)
	require.NoError(t, err)
	list := models.NewTaskList("list1", "list one", "", 2)
	require.NoError(t, db.InsertTaskList(context.Background(), list))
	require.NoError(t, db.Close())

	c := cmd.NewValidateCommand()
	out := runCommand(t, c, []string{"list1", "--config", configPath})
	assert.Contains(t, out, "list has no tasks")
}

func TestLearningStatsCommandReportsNoData(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	c := cmd.NewLearningCommand()
	out := runCommand(t, c, []string{"stats", "--config", configPath})
	assert.Contains(t, out, "no learned patterns yet")
}

func TestLearningExportWritesAtomicallyToOutPath(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	outPath := filepath.Join(t.TempDir(), "export.json")

	c := cmd.NewLearningCommand()
	out := runCommand(t, c, []string{"export", "--config", configPath, "--out", outPath})
	assert.Contains(t, out, "wrote")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	if _, err := os.Stat(outPath + ".lock"); !os.IsNotExist(err) {
		t.Errorf("expected lock file to be released, stat err=%v", err)
	}
}
