package appointments

import "time"

// AvailableSlots builds the bookable intervals for one day: each availability
// window on the day's weekday is stepped by the service duration, and any
// candidate conflicting with an open appointment is dropped. The day's
// midnight anchors minute-of-day math, so callers pass it in the
// professional's timezone.
func AvailableSlots(day time.Time, avail []Availability, open []Interval, duration time.Duration) []Interval {
	if duration <= 0 {
		return nil
	}
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	weekday := int(midnight.Weekday())

	var slots []Interval
	for _, a := range avail {
		if a.Weekday != weekday || a.EndMinute <= a.StartMinute {
			continue
		}
		windowStart := midnight.Add(time.Duration(a.StartMinute) * time.Minute)
		windowEnd := midnight.Add(time.Duration(a.EndMinute) * time.Minute)
		for start := windowStart; !start.Add(duration).After(windowEnd); start = start.Add(duration) {
			candidate := Interval{Start: start, End: start.Add(duration)}
			if !HasConflict(candidate, open) {
				slots = append(slots, candidate)
			}
		}
	}
	return slots
}
