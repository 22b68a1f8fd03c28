// Package display defines the render and panel collaborator contracts
// plus the refresh-mode selector.
package display

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/paperwx/paperwx/pkg/battery"
	"github.com/paperwx/paperwx/pkg/weather"
)

// Frame is a rendered raster ready for the panel. Pixel layout is the
// renderer's concern; the scheduler only moves frames around.
type Frame struct {
	Width  int
	Height int
	Pixels []byte
}

// Degraded annotates a render when the current cycle has no fresh data.
// A zero Kind means the fetch was skipped (breaker open) rather than
// failed. LastGoodAt is zero when no successful fetch has ever happened.
type Degraded struct {
	Kind       weather.FailureKind
	At         time.Time
	LastGoodAt time.Time
	Battery    *battery.Sample
}

// Renderer turns a weather snapshot into a frame. Pure: same inputs,
// same frame, no side effects. When degraded is non-nil the renderer
// shows data (possibly stale, possibly nil) with an error banner.
type Renderer interface {
	Render(data *weather.Data, degraded *Degraded, mode Mode) (*Frame, error)
}

// Panel writes a frame to the e-paper device. An I/O error is reported
// but the scheduler does not retry within the same cycle.
type Panel interface {
	Display(frame *Frame, mode Mode) error
}

// DebugRenderer produces a tiny placeholder frame and logs what it would
// have drawn. Used by dry runs and tests.
type DebugRenderer struct{}

func (DebugRenderer) Render(data *weather.Data, degraded *Degraded, mode Mode) (*Frame, error) {
	entry := logrus.WithField("mode", mode.String())
	switch {
	case degraded != nil && data == nil:
		entry.WithField("kind", degraded.Kind).Info("render: no data available")
	case degraded != nil:
		entry.WithFields(logrus.Fields{
			"kind":       degraded.Kind,
			"lastGoodAt": degraded.LastGoodAt,
		}).Info("render: stale data with error banner")
	default:
		entry.Infof("render: %s %.1f° %s", data.City, data.Current.Temp, data.Current.Condition)
	}
	return &Frame{Width: 1, Height: 1, Pixels: []byte{0}}, nil
}

// LogPanel discards frames and logs the write. Stand-in for the real
// panel driver on machines without the hardware.
type LogPanel struct{}

func (LogPanel) Display(frame *Frame, mode Mode) error {
	if frame == nil {
		return fmt.Errorf("nil frame")
	}
	logrus.WithFields(logrus.Fields{
		"mode":   mode.String(),
		"width":  frame.Width,
		"height": frame.Height,
	}).Debug("panel write")
	return nil
}
