package power

import (
	"os/exec"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Clock is the wall-clock source for quiet-hours and wake scheduling. The
// appliance has no guaranteed high-precision clock across power-off
// cycles, so the hardware RTC is re-synchronized once per successful
// network fetch.
type Clock interface {
	Now() time.Time
	SetFromNetwork(t time.Time) error
}

// SystemClock reads the OS clock and pushes it to the hardware RTC via
// hwclock. Sync failures are logged, never escalated.
type SystemClock struct {
	lastSync time.Time
}

func (c *SystemClock) Now() time.Time {
	return time.Now()
}

func (c *SystemClock) SetFromNetwork(t time.Time) error {
	// The OS clock is assumed NTP-adjusted once networking works; only
	// the battery-backed RTC needs the writeback. Once per hour is
	// plenty.
	if time.Since(c.lastSync) < time.Hour {
		return nil
	}

	if err := exec.Command("hwclock", "--systohc").Run(); err != nil {
		return pkgerrors.Wrap(err, "failed to sync hardware RTC")
	}
	c.lastSync = time.Now()
	logrus.Debug("hardware RTC synced from system clock")
	return nil
}
