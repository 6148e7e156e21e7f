package scheduler

import "time"

// Clock is the time source the scheduler sleeps against.
type Clock interface {
	Now() time.Time
	// After fires once d has elapsed. Non-positive d fires immediately.
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
