package appointments

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusScheduled, StatusConfirmed, true},
		{StatusConfirmed, StatusConfirmed, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusScheduled, StatusCompleted, false},
		{StatusCancelled, StatusCompleted, false},
		{StatusScheduled, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusCancelled, StatusCancelled, true},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCompleted, StatusConfirmed, false},
		{StatusScheduled, StatusScheduled, true},
		{StatusConfirmed, StatusScheduled, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}
