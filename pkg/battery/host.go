package battery

import (
	"math"

	distatus "github.com/distatus/battery"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// HostMonitor reads the first system battery via the OS power APIs.
// Useful when developing on a laptop instead of the appliance.
type HostMonitor struct{}

func (HostMonitor) Sample() (Sample, error) {
	batteries, err := distatus.GetAll()
	if err != nil {
		logrus.Debugf("host battery read failed: %v", err)
		return Sample{}, ErrUnavailable
	}
	if len(batteries) == 0 {
		return Sample{}, pkgerrors.Wrap(ErrUnavailable, "no batteries found")
	}

	bat := batteries[0]
	soc := 0
	if bat.Full > 0 {
		soc = int(math.Round(bat.Current / bat.Full * 100))
	}
	return Sample{
		SoC:      soc,
		Charging: bat.State == distatus.Charging || bat.State == distatus.Full,
	}, nil
}
