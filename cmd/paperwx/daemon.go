package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/paperwx/paperwx/pkg/daemon"
	"github.com/paperwx/paperwx/pkg/version"
)

var dryRun = false

// NewDaemonCommand .
func NewDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "daemon",
		Short:   "Run the paperwx daemon in the foreground",
		GroupID: gAdvanced,
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("paperwx daemon starting")
			return daemon.Run(daemon.Options{
				ConfigPath: configPath,
				SocketPath: socketPath,
				StatePath:  statePath,
				DryRun:     dryRun,
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&statePath, "state", statePath, "path to the persisted cycle state")
	f.BoolVar(&dryRun, "dry-run", false,
		"Log renders and panel writes instead of driving hardware, and never power off.")

	return cmd
}

// NewOnceCommand .
func NewOnceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "once",
		Short:   "Run a single refresh cycle and exit",
		GroupID: gBasic,
		RunE: func(_ *cobra.Command, _ []string) error {
			return daemon.Run(daemon.Options{
				ConfigPath: configPath,
				SocketPath: socketPath,
				StatePath:  statePath,
				DryRun:     dryRun,
				Once:       true,
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&statePath, "state", statePath, "path to the persisted cycle state")
	f.BoolVar(&dryRun, "dry-run", false,
		"Log renders and panel writes instead of driving hardware, and never power off.")

	return cmd
}
