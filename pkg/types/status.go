package types

import (
	"time"

	"github.com/paperwx/paperwx/pkg/battery"
)

// Status is the daemon snapshot served on the control socket and shown
// by `paperwx status`.
type Status struct {
	Version             string          `json:"version"`
	Phase               string          `json:"phase"`
	Battery             *battery.Sample `json:"battery,omitempty"`
	ConsecutiveFailures int             `json:"consecutiveFailures"`
	BreakerOpen         bool            `json:"breakerOpen"`
	BreakerOpenUntil    *time.Time      `json:"breakerOpenUntil,omitempty"`
	LastGoodFetchAt     *time.Time      `json:"lastGoodFetchAt,omitempty"`
	LastFullRefreshAt   time.Time       `json:"lastFullRefreshAt"`
	NextWakeAt          *time.Time      `json:"nextWakeAt,omitempty"`
	KeepAwake           bool            `json:"keepAwake"`
}
