package appointments

import (
	"testing"
	"time"
)

func TestAvailableSlots_StepsByDuration(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC) // a Tuesday
	avail := []Availability{
		{Weekday: int(time.Tuesday), StartMinute: 9 * 60, EndMinute: 12 * 60},
	}

	slots := AvailableSlots(day, avail, nil, time.Hour)
	if len(slots) != 3 {
		t.Fatalf("expected 3 one-hour slots, got %d", len(slots))
	}
	if got := slots[0].Start.Hour(); got != 9 {
		t.Errorf("expected first slot at 09:00, got %02d:00", got)
	}
	if got := slots[2].End.Hour(); got != 12 {
		t.Errorf("expected last slot ending at 12:00, got %02d:00", got)
	}
}

func TestAvailableSlots_ExcludesBooked(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	avail := []Availability{
		{Weekday: int(time.Tuesday), StartMinute: 9 * 60, EndMinute: 12 * 60},
	}
	booked := []Interval{{
		Start: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
	}}

	slots := AvailableSlots(day, avail, booked, time.Hour)
	if len(slots) != 2 {
		t.Fatalf("expected 2 free slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s.Start.Hour() == 10 {
			t.Errorf("booked 10:00 slot should be excluded")
		}
	}
}

func TestAvailableSlots_WrongWeekday(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC) // Tuesday
	avail := []Availability{
		{Weekday: int(time.Monday), StartMinute: 9 * 60, EndMinute: 17 * 60},
	}

	if slots := AvailableSlots(day, avail, nil, time.Hour); len(slots) != 0 {
		t.Fatalf("expected no slots on a day without availability, got %d", len(slots))
	}
}

func TestAvailableSlots_DurationLongerThanWindow(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	avail := []Availability{
		{Weekday: int(time.Tuesday), StartMinute: 9 * 60, EndMinute: 9*60 + 30},
	}

	if slots := AvailableSlots(day, avail, nil, time.Hour); len(slots) != 0 {
		t.Fatalf("expected no slots when the window is shorter than the service, got %d", len(slots))
	}
}
