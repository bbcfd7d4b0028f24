package genqueue

import "time"

// Clock abstracts wall-clock time so retry and spacing behavior can be
// tested without real waits.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock is the production clock.
var SystemClock Clock = systemClock{}
