package xmodem

import "time"

// timer is the deadline primitive used by the polling loops. A timer is
// created with a fixed duration and restarted each time the protocol step
// it guards begins again.
type timer struct {
	d        time.Duration
	deadline time.Time
}

func newTimer(d time.Duration) *timer {
	return &timer{d: d}
}

// start arms the deadline and returns the timer for chaining.
func (t *timer) start() *timer {
	t.deadline = time.Now().Add(t.d)
	return t
}

// expired reports whether the armed deadline has passed.
func (t *timer) expired() bool {
	return time.Now().After(t.deadline)
}
