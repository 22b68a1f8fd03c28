package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/paperwx/paperwx/pkg/client"
)

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current status of paperwx",
		Long:    `Get scheduling state, battery info, and breaker status from the daemon.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			apiClient := client.NewClient(socketPath)
			status, err := apiClient.GetStatus()
			if err != nil {
				return fmt.Errorf("failed to get daemon status: %w", err)
			}

			cmd.Println(bold("Daemon:"))
			cmd.Printf("  Version: %s\n", status.Version)
			cmd.Printf("  Phase: %s\n", status.Phase)
			cmd.Println("  Keep awake: " + bool2Text(status.KeepAwake))

			cmd.Println(bold("Battery:"))
			if status.Battery != nil {
				cmd.Printf("  Charge: %s\n", bold("%d%%", status.Battery.SoC))
				cmd.Println("  Charging: " + bool2Text(status.Battery.Charging))
			} else {
				cmd.Println("  Sensor unavailable (conservative scheduling in effect)")
			}

			cmd.Println(bold("Upstream:"))
			if status.BreakerOpen {
				cmd.Println("  Breaker: " + color.New(color.Bold, color.FgRed).Sprint("open"))
				if status.BreakerOpenUntil != nil {
					cmd.Printf("  Retrying after: %s\n", status.BreakerOpenUntil.Format(time.Kitchen))
				}
			} else {
				cmd.Println("  Breaker: " + color.New(color.Bold, color.FgGreen).Sprint("closed"))
			}
			cmd.Printf("  Consecutive failures: %d\n", status.ConsecutiveFailures)
			if status.LastGoodFetchAt != nil {
				cmd.Printf("  Last successful fetch: %s\n", status.LastGoodFetchAt.Format(time.RFC1123))
			} else {
				cmd.Println("  Last successful fetch: never")
			}

			cmd.Println(bold("Panel:"))
			if status.LastFullRefreshAt.IsZero() {
				cmd.Println("  Last full repaint: never (due next cycle)")
			} else {
				cmd.Printf("  Last full repaint: %s\n", status.LastFullRefreshAt.Format(time.RFC1123))
			}
			if status.NextWakeAt != nil {
				cmd.Printf("  Next wake: %s\n", status.NextWakeAt.Format(time.RFC1123))
			}

			return nil
		},
	}
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
