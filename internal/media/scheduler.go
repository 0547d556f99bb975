package media

import "time"

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop cancels the callback if it has not run yet.
	Stop() bool
}

// Scheduler runs callbacks after a delay. The sampling loop reschedules
// itself through it one tick at a time.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// WallClock schedules on the runtime timer heap.
type WallClock struct{}

func (WallClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
