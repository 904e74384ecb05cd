package appointments

import "time"

// Interval is a half-open [Start, End) booking window.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open intervals share any instant.
// Intervals that touch at a boundary (one ends exactly when the other
// starts) do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// HasConflict reports whether the candidate interval overlaps any existing
// interval. O(n) scan; a single professional's open appointments stay small
// enough that nothing smarter is warranted.
func HasConflict(candidate Interval, existing []Interval) bool {
	for _, e := range existing {
		if candidate.Overlaps(e) {
			return true
		}
	}
	return false
}

// OpenIntervals collects the booked intervals of appointments that still
// occupy their slot (scheduled or confirmed).
func OpenIntervals(appts []*Appointment) []Interval {
	var out []Interval
	for _, a := range appts {
		if a.Open() {
			out = append(out, a.Interval())
		}
	}
	return out
}
