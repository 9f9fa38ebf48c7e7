package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foreman-sh/foreman/internal/config"
	"github.com/foreman-sh/foreman/internal/models"
	"github.com/foreman-sh/foreman/internal/planner"
	"github.com/foreman-sh/foreman/internal/store"
)

// NewValidateCommand dry-runs the planner over a task list and prints the
// resulting wave layout without creating an execution run, so an operator
// can sanity-check a list before spending the approval round-trip.
func NewValidateCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate <listId>",
		Short: "Dry-run the planner over a task list and print its waves",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listID := args[0]
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			db, err := store.Open(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := context.Background()
			list, err := db.GetTaskList(ctx, listID)
			if err != nil {
				return err
			}
			tasks, err := db.ListTasksByPlacement(ctx, listID, store.Paging{Limit: 1000})
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "list has no tasks")
				return nil
			}

			taskIDs := make([]string, 0, len(tasks))
			for _, t := range tasks {
				taskIDs = append(taskIDs, t.ID)
			}
			relationships, err := db.ListRelationshipsForTasks(ctx, taskIDs)
			if err != nil {
				return err
			}

			lookup := func(taskID string) []models.FileImpact {
				impacts, _ := db.ListFileImpacts(ctx, taskID)
				return impacts
			}

			waves, err := planner.CalculateWaves(tasks, relationships, lookup, list.MaxParallelAgents)
			if err != nil {
				return fmt.Errorf("planning failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d tasks, %d waves, cap %d\n", list.Name, len(tasks), len(waves), list.MaxParallelAgents)
			for _, w := range waves {
				fmt.Fprintf(out, "  wave %d: %d tasks (cap %d)\n", w.Number, len(w.TaskIDs), w.MaxParallelAgents)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "foreman.yaml", "path to config file")
	return cmd
}
