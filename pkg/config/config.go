package config

import "github.com/paperwx/paperwx/pkg/power"

type Config interface {
	APIKey() string
	Latitude() float64
	Longitude() float64
	City() string
	Units() string
	RefreshMinutes() int
	CriticalSoC() int
	QuietHours() *power.QuietHours
	KeepAwake() bool
	FullRefreshCron() string
	HourlyCount() int
	DailyCount() int

	SetKeepAwake(bool)
	SetRefreshMinutes(int)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
