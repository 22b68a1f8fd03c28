// Package battery abstracts the UPS / battery sensor.
package battery

import "errors"

// ErrUnavailable is returned when the sensor cannot be read. Callers must
// treat this as a degraded reading, never as fatal.
var ErrUnavailable = errors.New("battery sensor unavailable")

// Sample is one battery reading, taken at cycle start and immutable for
// the duration of that cycle.
type Sample struct {
	SoC      int  `json:"soc"`
	Charging bool `json:"charging"`
}

// Monitor reads the battery. Implementations return ErrUnavailable when
// no sensor is present or the read fails.
type Monitor interface {
	Sample() (Sample, error)
}

// NopMonitor always reports an unavailable sensor. Used on dev machines
// without a battery; the policy layer degrades to its most conservative
// band.
type NopMonitor struct{}

func (NopMonitor) Sample() (Sample, error) {
	return Sample{}, ErrUnavailable
}
