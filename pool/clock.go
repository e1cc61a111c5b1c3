package pool

import "time"

// Clock abstracts time so eviction decisions are testable without real
// sleeping. Production code uses the system clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
