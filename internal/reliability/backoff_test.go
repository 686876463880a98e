package reliability

import (
	"testing"
	"time"
)

func TestLinearBackoffSchedule(t *testing.T) {
	base := 2 * time.Second
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 6 * time.Second},
	}
	for _, tc := range cases {
		if got := LinearBackoff(tc.attempt, base); got != tc.want {
			t.Fatalf("LinearBackoff(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestLinearBackoffClampsNonPositiveAttempt(t *testing.T) {
	base := 100 * time.Millisecond
	if got := LinearBackoff(0, base); got != base {
		t.Fatalf("attempt 0 = %v, want %v", got, base)
	}
}
