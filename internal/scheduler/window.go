// Package scheduler owns the per-category poll loop: the eligibility window,
// the Idle/Polling/Stopped state machine, and cycle failure isolation.
package scheduler

import "time"

// MinLookAhead is the smallest look-ahead a window is built with.
const MinLookAhead = time.Minute

// Window returns the eligibility window [now-grace, now+lookAhead]. Grace is
// clamped to >= 0 and lookAhead to >= MinLookAhead. Both bounds are inclusive.
func Window(now time.Time, grace, lookAhead time.Duration) (from, to time.Time) {
	if grace < 0 {
		grace = 0
	}
	if lookAhead < MinLookAhead {
		lookAhead = MinLookAhead
	}
	return now.Add(-grace), now.Add(lookAhead)
}

// InWindow reports whether t lies in [from, to].
func InWindow(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
