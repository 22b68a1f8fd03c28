// Package breaker implements the single-step circuit breaker that gates
// weather fetch attempts. It is a set of pure functions over the persisted
// cycle state: no goroutines, no clocks, no errors.
package breaker

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/paperwx/paperwx/pkg/state"
)

// FailureThreshold is the number of consecutive failures that opens the
// breaker.
const FailureThreshold = 3

// BackoffMultiplier scales the base refresh interval into the open
// duration. A fixed single step, not an exponential ladder.
const BackoffMultiplier = 4

// ShouldAttempt reports whether a fetch should be attempted this cycle.
// Closed breaker: always. Open breaker: only once the cooldown has
// expired, which is the half-open trial.
func ShouldAttempt(st state.CycleState, now time.Time) bool {
	if st.BreakerOpenUntil.IsZero() {
		return true
	}
	return !now.Before(st.BreakerOpenUntil)
}

// RecordSuccess closes the breaker and clears the failure streak.
func RecordSuccess(st state.CycleState) state.CycleState {
	st.ConsecutiveFailures = 0
	st.BreakerOpenUntil = time.Time{}
	return st
}

// RecordFailure increments the failure streak and opens the breaker once
// the streak reaches the threshold. A failure on the half-open trial
// re-opens for another full backoff. baseInterval is the currently
// configured refresh interval.
func RecordFailure(st state.CycleState, now time.Time, baseInterval time.Duration) state.CycleState {
	st.ConsecutiveFailures++
	if st.ConsecutiveFailures >= FailureThreshold {
		st.BreakerOpenUntil = now.Add(baseInterval * BackoffMultiplier)
		logrus.WithFields(logrus.Fields{
			"failures":  st.ConsecutiveFailures,
			"openUntil": st.BreakerOpenUntil,
		}).Warn("circuit breaker open, suspending fetch attempts")
	}
	return st
}
