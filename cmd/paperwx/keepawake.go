package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/paperwx/paperwx/pkg/client"
)

// NewKeepAwakeCommand .
func NewKeepAwakeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "keep-awake",
		Short:   "the keep-awake override (suppresses power-off and quiet hours)",
		GroupID: gAdvanced,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Enable the keep-awake override",
			RunE: func(_ *cobra.Command, _ []string) error {
				ret, err := client.NewClient(socketPath).SetKeepAwake(true)
				if err != nil {
					return fmt.Errorf("failed to enable keep-awake: %v", err)
				}
				if ret != "" {
					logrus.Infof("daemon responded: %s", ret)
				}
				logrus.Infof("successfully enabled keep-awake")
				return nil
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Disable the keep-awake override",
			RunE: func(_ *cobra.Command, _ []string) error {
				ret, err := client.NewClient(socketPath).SetKeepAwake(false)
				if err != nil {
					return fmt.Errorf("failed to disable keep-awake: %v", err)
				}
				if ret != "" {
					logrus.Infof("daemon responded: %s", ret)
				}
				logrus.Infof("successfully disabled keep-awake")
				return nil
			},
		},
	)

	return cmd
}

// NewRefreshCommand .
func NewRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "refresh",
		Short:   "Trigger an immediate refresh cycle",
		GroupID: gBasic,
		RunE: func(_ *cobra.Command, _ []string) error {
			ret, err := client.NewClient(socketPath).TriggerRefresh()
			if err != nil {
				return fmt.Errorf("failed to trigger refresh: %v", err)
			}
			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}
			return nil
		},
	}
}
