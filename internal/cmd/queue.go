package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/foreman-sh/foreman/internal/commandloop"
	"github.com/foreman-sh/foreman/internal/config"
	"github.com/foreman-sh/foreman/internal/store"
)

// NewQueueCommand prints the evaluation queue's tasks and age stats,
// the offline equivalent of the /queue chat command.
func NewQueueCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Summarize the evaluation queue",
		RunE: func(cmd *cobra.Command, args []string) error {
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
			tasks, err := db.ListTasksByPlacement(ctx, commandloop.EvaluationQueuePlacement, store.Paging{Limit: 500})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(out, "evaluation queue is empty")
				return nil
			}

			now := time.Now().UTC()
			var oldest time.Duration
			for _, t := range tasks {
				age := now.Sub(t.CreatedAt)
				if age > oldest {
					oldest = age
				}
				fmt.Fprintf(out, "%s: %s (%s, priority %d, age %s)\n", t.ShortID, t.Title, t.Category, t.Priority, age.Round(time.Second))
			}
			fmt.Fprintf(out, "%d tasks, oldest %s\n", len(tasks), oldest.Round(time.Second))
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "foreman.yaml", "path to config file")
	return cmd
}
