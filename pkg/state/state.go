package state

import (
	"time"

	"github.com/paperwx/paperwx/pkg/weather"
)

// CycleState is the small record that survives sleep/wake and power-off
// cycles. It is owned by the scheduling loop and mutated only at cycle
// boundaries, so no locking is needed; persistence must be atomic.
type CycleState struct {
	// LastFullRefreshAt is the time the last full panel repaint was
	// attempted. It records attempt time, not display-success time.
	LastFullRefreshAt time.Time `json:"lastFullRefreshAt"`

	// ConsecutiveFailures counts fetch failures since the last success.
	ConsecutiveFailures int `json:"consecutiveFailures"`

	// BreakerOpenUntil is set while the circuit breaker is open. Zero
	// means the breaker is closed.
	BreakerOpenUntil time.Time `json:"breakerOpenUntil,omitempty"`

	// LastKnownSoC is the battery state of charge observed on the last
	// cycle, or nil if the sensor has never responded.
	LastKnownSoC *int `json:"lastKnownSoc,omitempty"`

	// LastGood is the most recent successfully fetched weather snapshot,
	// kept so an open breaker can still render something useful.
	LastGood *weather.Data `json:"lastGood,omitempty"`

	// LastGoodAt is when LastGood was fetched.
	LastGoodAt time.Time `json:"lastGoodAt,omitempty"`
}

// BreakerOpen reports whether the breaker is open relative to now.
func (s CycleState) BreakerOpen(now time.Time) bool {
	return !s.BreakerOpenUntil.IsZero() && now.Before(s.BreakerOpenUntil)
}
