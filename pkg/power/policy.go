// Package power holds battery-driven scheduling policy and the
// wake/shutdown machinery.
package power

import (
	"math"
	"time"

	"github.com/paperwx/paperwx/pkg/battery"
)

// IntervalMultiplier maps a state of charge to a refresh-interval
// multiplier. Step function, lower bounds inclusive:
//
//	>50%   1.0
//	26-50  1.5
//	16-25  2.0
//	6-15   3.0
//	0-5    4.0
func IntervalMultiplier(soc int) float64 {
	switch {
	case soc > 50:
		return 1.0
	case soc > 25:
		return 1.5
	case soc > 15:
		return 2.0
	case soc > 5:
		return 3.0
	default:
		return 4.0
	}
}

// EffectiveInterval scales the base refresh interval by the battery
// multiplier, rounded to whole minutes with a floor of one minute. A nil
// sample (sensor unavailable) uses the most conservative band so a broken
// sensor slows cycling down, never speeds it up.
func EffectiveInterval(baseMinutes int, sample *battery.Sample) time.Duration {
	soc := 0
	if sample != nil {
		soc = sample.SoC
	}

	minutes := int(math.Round(float64(baseMinutes) * IntervalMultiplier(soc)))
	if minutes < 1 {
		minutes = 1
	}
	return time.Duration(minutes) * time.Minute
}

// ShouldForcePowerOff decides whether the appliance should cut peripheral
// power instead of sleeping in-process. keepAwake suppresses power-off
// unconditionally. A nil sample counts as not charging.
func ShouldForcePowerOff(sample *battery.Sample, now time.Time, quiet *QuietHours, keepAwake bool, criticalSoC int) bool {
	if keepAwake {
		return false
	}
	if sample != nil && sample.Charging {
		return false
	}

	if sample != nil && sample.SoC <= criticalSoC {
		return true
	}
	if quiet != nil && quiet.Contains(now) {
		return true
	}
	return false
}
