package power

import (
	"os"
	"os/exec"
	"strconv"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// WakeupProvider arms a hardware alarm that powers the system back on.
type WakeupProvider interface {
	SetWakeup(at time.Time) error
}

// RTCWakeup writes an epoch timestamp to the kernel RTC wakealarm file.
// Writing "0" first clears any previously armed alarm.
type RTCWakeup struct {
	Path string
}

const defaultWakealarmPath = "/sys/class/rtc/rtc0/wakealarm"

func NewRTCWakeup(path string) *RTCWakeup {
	if path == "" {
		path = defaultWakealarmPath
	}
	return &RTCWakeup{Path: path}
}

func (r *RTCWakeup) SetWakeup(at time.Time) error {
	f, err := os.OpenFile(r.Path, os.O_WRONLY, 0)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open wakealarm %s", r.Path)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logrus.Errorf("failed to close wakealarm: %v", err)
		}
	}()

	if _, err := f.WriteString("0"); err != nil {
		return pkgerrors.Wrap(err, "failed to clear wakealarm")
	}
	if _, err := f.WriteString(strconv.FormatInt(at.Unix(), 10)); err != nil {
		return pkgerrors.Wrap(err, "failed to arm wakealarm")
	}

	logrus.WithField("wakeAt", at).Info("RTC wakealarm armed")
	return nil
}

// Manager schedules hardware wakes and powers the system off. Providers
// are tried in order; the first success wins.
type Manager struct {
	Providers []WakeupProvider

	// ShutdownCmd is run to cut power. Replaced in tests and dry runs.
	ShutdownCmd func() error
}

func NewManager(providers ...WakeupProvider) *Manager {
	if len(providers) == 0 {
		providers = []WakeupProvider{NewRTCWakeup("")}
	}
	return &Manager{
		Providers: providers,
		ShutdownCmd: func() error {
			return exec.Command("shutdown", "-h", "now").Run()
		},
	}
}

// ScheduleWakeup arms a wake alarm for at. Returns an error only if every
// provider failed; callers must then fall back to in-process sleep rather
// than powering off with no way back.
func (m *Manager) ScheduleWakeup(at time.Time) error {
	var lastErr error
	for _, p := range m.Providers {
		if err := p.SetWakeup(at); err != nil {
			logrus.Debugf("wakeup provider failed: %v", err)
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = pkgerrors.New("no wakeup providers configured")
	}
	return pkgerrors.Wrap(lastErr, "all wakeup providers failed")
}

// PowerOff initiates system shutdown.
func (m *Manager) PowerOff() error {
	logrus.Info("powering off")
	if err := m.ShutdownCmd(); err != nil {
		return pkgerrors.Wrap(err, "shutdown command failed")
	}
	return nil
}
