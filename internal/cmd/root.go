// Package cmd wires foreman's cobra subcommands, grounded on the
// teacher's internal/cmd/root.go command tree (one NewXCommand per
// subcommand, a shared root with SilenceUsage set).
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags.
var Version = "dev"

// NewRootCommand builds the foreman root command and wires every
// subcommand onto it.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "foreman",
		Short: "Autonomous task execution orchestrator",
		Long: `foreman turns an evaluation queue of tasks into planned waves of
worker agents, dispatching each task to an OS process and reporting
progress, failures, and escalations through a chat channel.`,
		Version:      Version,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewQueueCommand())
	cmd.AddCommand(NewMigrateCommand())
	cmd.AddCommand(NewLearningCommand())

	return cmd
}
