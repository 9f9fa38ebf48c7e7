package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/foreman-sh/foreman/internal/config"
	"github.com/foreman-sh/foreman/internal/fileimpact"
	"github.com/foreman-sh/foreman/internal/filelock"
	"github.com/foreman-sh/foreman/internal/store"
)

// NewLearningCommand groups the file-impact analyser's accuracy
// reporting subcommands, grounded on the teacher's
// internal/cmd/learning_stats.go / learning_export.go.
func NewLearningCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learning",
		Short: "Inspect the file-impact analyser's learned accuracy",
	}
	cmd.AddCommand(newLearningStatsCommand())
	cmd.AddCommand(newLearningExportCommand())
	return cmd
}

func openLearningStore(configPath string) (*store.Store, *fileimpact.LearningStore, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, err
	}
	return db, fileimpact.NewLearningStore(db.DB()), nil
}

func newLearningStatsCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the per-(category, glob, operation) accuracy table",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, learning, err := openLearningStore(configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := learning.Stats(context.Background())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(stats) == 0 {
				fmt.Fprintln(out, "no learned patterns yet")
				return nil
			}
			for _, s := range stats {
				colorFn := color.GreenString
				if s.Accuracy < 0.5 {
					colorFn = color.RedString
				}
				fmt.Fprintf(out, "%-14s %-30s %-8s %s (%d samples)\n",
					s.Category, s.Glob, s.Operation, colorFn("%.2f", s.Accuracy), s.SampleCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "foreman.yaml", "path to config file")
	return cmd
}

func newLearningExportCommand() *cobra.Command {
	var configPath, outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump the learned pattern table as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, learning, err := openLearningStore(configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := learning.Stats(context.Background())
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			enc := json.NewEncoder(&buf)
			enc.SetIndent("", "  ")
			if err := enc.Encode(stats); err != nil {
				return err
			}

			if outPath == "" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}

			// Lock-and-write so two concurrent exports to the same
			// destination never interleave their atomic renames.
			if err := filelock.LockAndWrite(outPath, buf.Bytes()); err != nil {
				return fmt.Errorf("write export file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", buf.Len(), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "foreman.yaml", "path to config file")
	cmd.Flags().StringVar(&outPath, "out", "", "write the export to this path instead of stdout")
	return cmd
}
