package battery

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const defaultSupplyPath = "/sys/class/power_supply/pijuice-battery"

// SysfsMonitor reads a Linux power_supply device. The PiJuice HAT driver
// exposes capacity and status under /sys/class/power_supply.
type SysfsMonitor struct {
	Path string
}

func NewSysfsMonitor(path string) *SysfsMonitor {
	if path == "" {
		path = defaultSupplyPath
	}
	return &SysfsMonitor{Path: path}
}

func (m *SysfsMonitor) Sample() (Sample, error) {
	capRaw, err := os.ReadFile(filepath.Join(m.Path, "capacity"))
	if err != nil {
		logrus.Debugf("sysfs battery read failed: %v", err)
		return Sample{}, ErrUnavailable
	}

	soc, err := strconv.Atoi(strings.TrimSpace(string(capRaw)))
	if err != nil {
		return Sample{}, ErrUnavailable
	}

	charging := false
	if statusRaw, err := os.ReadFile(filepath.Join(m.Path, "status")); err == nil {
		status := strings.TrimSpace(string(statusRaw))
		charging = status == "Charging" || status == "Full"
	}

	return Sample{SoC: soc, Charging: charging}, nil
}
