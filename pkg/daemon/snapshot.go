package daemon

import (
	"sync"
	"time"

	"github.com/paperwx/paperwx/pkg/battery"
	"github.com/paperwx/paperwx/pkg/state"
	"github.com/paperwx/paperwx/pkg/types"
	"github.com/paperwx/paperwx/pkg/version"
)

// snapshotState is the controller's view exposed to the control socket.
// Handlers only ever read it (plus the keep-awake config flag); the
// cycle itself owns the authoritative CycleState.
type snapshotState struct {
	mu       sync.RWMutex
	st       state.CycleState
	phase    Phase
	sample   *battery.Sample
	nextWake time.Time
}

// swapPhase sets the phase and returns the previous one.
func (s *snapshotState) swapPhase(p Phase) Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.phase
	s.phase = p
	return prev
}

func (s *snapshotState) setState(st state.CycleState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = st
}

func (s *snapshotState) update(st state.CycleState, sample *battery.Sample, nextWake time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = st
	s.sample = sample
	s.nextWake = nextWake
}

func (s *snapshotState) state() state.CycleState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st
}

func (s *snapshotState) status(keepAwake bool, now time.Time) *types.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := &types.Status{
		Version:             version.Version,
		Phase:               string(s.phase),
		Battery:             s.sample,
		ConsecutiveFailures: s.st.ConsecutiveFailures,
		BreakerOpen:         s.st.BreakerOpen(now),
		LastFullRefreshAt:   s.st.LastFullRefreshAt,
		KeepAwake:           keepAwake,
	}
	if !s.st.BreakerOpenUntil.IsZero() {
		t := s.st.BreakerOpenUntil
		status.BreakerOpenUntil = &t
	}
	if !s.st.LastGoodAt.IsZero() {
		t := s.st.LastGoodAt
		status.LastGoodFetchAt = &t
	}
	if !s.nextWake.IsZero() {
		t := s.nextWake
		status.NextWakeAt = &t
	}
	return status
}
