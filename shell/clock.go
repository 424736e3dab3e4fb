package shell

import (
	"time"
)

// Clock returns the current time.
type Clock func() time.Time

// SystemClock returns UTC wall time truncated to whole seconds.
// Stored timestamps then compare consistently on every supported database.
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// FixedClock returns a Clock that always reports t.
func FixedClock(t time.Time) Clock {
	return func() time.Time {
		return t
	}
}
