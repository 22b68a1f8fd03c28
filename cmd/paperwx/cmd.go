package main

import (
	"github.com/spf13/cobra"

	"github.com/paperwx/paperwx/pkg/version"
)

var (
	gBasic    = "Basic:"
	gAdvanced = "Advanced:"
)

// NewCommand .
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paperwx",
		Short: "paperwx drives a battery-powered e-paper weather display",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogger()
		},
	}

	cmd.AddGroup(
		&cobra.Group{ID: gBasic, Title: gBasic},
		&cobra.Group{ID: gAdvanced, Title: gAdvanced},
	)

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "path to the config file")
	globalFlags.StringVar(&socketPath, "socket", socketPath, "path to the daemon control socket")

	cmd.AddCommand(
		NewDaemonCommand(),
		NewOnceCommand(),
		NewStatusCommand(),
		NewKeepAwakeCommand(),
		NewRefreshCommand(),
		NewVersionCommand(),
	)

	return cmd
}

// NewVersionCommand .
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s\n", version.Version)
		},
	}
}
