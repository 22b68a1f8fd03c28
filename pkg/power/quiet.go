package power

import "time"

// QuietHours is a daily window, in whole hours of local wall-clock time,
// during which the appliance powers down absent a keep-awake override.
// Start and End are hours in [0, 23]. Windows may wrap midnight, e.g.
// Start=23 End=7.
type QuietHours struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether t falls inside the window. The window is
// half-open: [Start, End).
func (q QuietHours) Contains(t time.Time) bool {
	h := t.Hour()
	if q.Start < q.End {
		return h >= q.Start && h < q.End
	}
	if q.Start > q.End {
		return h >= q.Start || h < q.End
	}
	// Start == End is rejected by config validation; treat as no window.
	return false
}

// UntilEnd returns the duration from t until the window closes, or zero
// if t is outside the window.
func (q QuietHours) UntilEnd(t time.Time) time.Duration {
	if !q.Contains(t) {
		return 0
	}

	end := time.Date(t.Year(), t.Month(), t.Day(), q.End, 0, 0, 0, t.Location())
	if !end.After(t) {
		end = end.AddDate(0, 0, 1)
	}
	return end.Sub(t)
}
