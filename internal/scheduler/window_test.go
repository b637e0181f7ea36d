package scheduler

import (
	"testing"
	"time"
)

func TestWindow_BoundsAndClamps(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	from, to := Window(now, 5*time.Minute, 30*time.Minute)
	if !from.Equal(now.Add(-5*time.Minute)) || !to.Equal(now.Add(30*time.Minute)) {
		t.Fatalf("window = [%v, %v]", from, to)
	}

	from, to = Window(now, -time.Hour, 0)
	if !from.Equal(now) {
		t.Fatalf("negative grace must clamp to 0, from=%v", from)
	}
	if !to.Equal(now.Add(MinLookAhead)) {
		t.Fatalf("look-ahead must clamp to 1m, to=%v", to)
	}
}

func TestInWindow_InclusiveBothEnds(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	grace, ahead := 5*time.Minute, 30*time.Minute
	from, to := Window(now, grace, ahead)

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"grace minus 1m", now.Add(-grace - time.Minute), false},
		{"exactly now-grace", now.Add(-grace), true},
		{"now", now, true},
		{"exactly now+lookAhead", now.Add(ahead), true},
		{"lookAhead plus 1m", now.Add(ahead + time.Minute), false},
	}
	for _, tc := range cases {
		if got := InWindow(tc.at, from, to); got != tc.want {
			t.Fatalf("%s: InWindow = %v; want %v", tc.name, got, tc.want)
		}
	}
}
