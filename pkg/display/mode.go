package display

import "time"

// Mode selects how the panel repaints.
type Mode int

const (
	// Partial is the fast greyscale update. Cheap, but accumulates
	// ghosting.
	Partial Mode = iota
	// Full is the white-black-white repaint that clears ghosting.
	Full
)

func (m Mode) String() string {
	if m == Full {
		return "full"
	}
	return "partial"
}

// FullRefreshInterval is the rolling window after which a full repaint is
// due. The ghosting-clearing refresh is never skipped for power or
// breaker reasons.
const FullRefreshInterval = 24 * time.Hour

// SelectMode returns Full once per rolling window since the last full
// refresh attempt, Partial otherwise. Pure and idempotent: calling it
// again without recording a full refresh yields the same answer.
func SelectMode(lastFullRefreshAt, now time.Time) Mode {
	if now.Sub(lastFullRefreshAt) >= FullRefreshInterval {
		return Full
	}
	return Partial
}
