// Package playback drives a story viewer session: timed auto-advance for
// photos, media-clock progress for videos, and fade transitions between
// items. All timing goes through the Clock interface so sessions can run
// against simulated time in tests.
package playback

import "time"

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the
	// timer was stopped before firing.
	Stop() bool
}

// Clock abstracts wall time and timer scheduling.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// realClock delegates to the time package.
type realClock struct{}

// NewClock returns a Clock backed by real wall time.
func NewClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
