package appointments

import (
	"testing"
	"time"
)

func interval(startHour, endHour int) Interval {
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	return Interval{
		Start: base.Add(time.Duration(startHour) * time.Hour),
		End:   base.Add(time.Duration(endHour) * time.Hour),
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name      string
		candidate Interval
		existing  Interval
		want      bool
	}{
		{"disjoint before", interval(8, 9), interval(10, 11), false},
		{"disjoint after", interval(12, 13), interval(10, 11), false},
		{"touching at existing start", interval(9, 10), interval(10, 11), false},
		{"touching at existing end", interval(11, 12), interval(10, 11), false},
		{"start inside existing", interval(10, 12), interval(9, 11), true},
		{"end inside existing", interval(8, 10), interval(9, 11), true},
		{"candidate contains existing", interval(8, 12), interval(9, 11), true},
		{"existing contains candidate", interval(9, 10), interval(8, 12), true},
		{"identical", interval(9, 11), interval(9, 11), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.candidate.Overlaps(tt.existing); got != tt.want {
				t.Errorf("Overlaps(%v, %v) = %v, want %v", tt.candidate, tt.existing, got, tt.want)
			}
			// Overlap is symmetric.
			if got := tt.existing.Overlaps(tt.candidate); got != tt.want {
				t.Errorf("Overlaps(%v, %v) = %v, want %v (symmetry)", tt.existing, tt.candidate, got, tt.want)
			}
		})
	}
}

func TestOverlaps_ExhaustiveGrid(t *testing.T) {
	// Every pair of one-hour-aligned intervals over a small range, checked
	// against the shared-instant definition.
	for cs := 0; cs < 6; cs++ {
		for ce := cs + 1; ce <= 6; ce++ {
			for es := 0; es < 6; es++ {
				for ee := es + 1; ee <= 6; ee++ {
					cand, exist := interval(cs, ce), interval(es, ee)
					want := cs < ee && es < ce
					if got := cand.Overlaps(exist); got != want {
						t.Fatalf("[%d,%d) vs [%d,%d): got %v, want %v", cs, ce, es, ee, got, want)
					}
				}
			}
		}
	}
}

func TestHasConflict(t *testing.T) {
	existing := []Interval{interval(9, 10), interval(14, 15)}

	if HasConflict(interval(10, 11), existing) {
		t.Error("slot starting at an existing end should be free")
	}
	if !HasConflict(interval(14, 16), existing) {
		t.Error("slot covering an existing appointment should conflict")
	}
	if HasConflict(interval(11, 12), nil) {
		t.Error("no existing intervals means no conflict")
	}
}

func TestOpenIntervals_SkipsClosedStatuses(t *testing.T) {
	appts := []*Appointment{
		{Status: StatusScheduled, StartTime: interval(9, 10).Start, EndTime: interval(9, 10).End},
		{Status: StatusConfirmed, StartTime: interval(10, 11).Start, EndTime: interval(10, 11).End},
		{Status: StatusCancelled, StartTime: interval(11, 12).Start, EndTime: interval(11, 12).End},
		{Status: StatusCompleted, StartTime: interval(12, 13).Start, EndTime: interval(12, 13).End},
	}

	open := OpenIntervals(appts)
	if len(open) != 2 {
		t.Fatalf("expected 2 open intervals, got %d", len(open))
	}
}
