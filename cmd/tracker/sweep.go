package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tracker/internal/config"
	"tracker/internal/storage/sqlite"
	"tracker/internal/sweep"
)

func newSweepCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire overdue pending tasks once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Secrets are irrelevant here, so only the loader runs.
			cfg, err := config.Load(root.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			logger := cfg.Logger()

			store, err := sqlite.Open(cfg.DBPath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := sweep.New(store, logger, cfg.Sweep.Interval).RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d task(s)\n", n)
			return nil
		},
	}
	cmd.Flags().String("db", "data/tracker.db", "Path to sqlite database file")
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "tracker.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	})
	return cmd
}
