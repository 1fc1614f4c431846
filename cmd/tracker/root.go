package main

import (
	"github.com/spf13/cobra"

	"tracker/internal/util"
)

const version = "1.0.0"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "tracker",
		Short:         "Multi-tenant project and task tracker",
		Version:       version,
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c",
		util.EnvOrDefault("TRACKER_CONFIG", util.FirstExisting("tracker.yaml", "/etc/tracker/tracker.yaml")),
		"Path to YAML config file")

	cmd.AddCommand(
		newServeCmd(opts),
		newSweepCmd(opts),
		newConfigCmd(),
	)
	return cmd
}
