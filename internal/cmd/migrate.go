package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foreman-sh/foreman/internal/config"
	"github.com/foreman-sh/foreman/internal/store"
)

// NewMigrateCommand applies the embedded schema to the configured
// database, creating it if needed. store.Open is idempotent (every
// CREATE TABLE is IF NOT EXISTS), so this is safe to run repeatedly.
func NewMigrateCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			db, err := store.Open(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			defer db.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "schema applied at %s\n", cfg.Store.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "foreman.yaml", "path to config file")
	return cmd
}
