package hostbench

import "time"

// SetClock replaces the executor's time source.
func (e *Executor) SetClock(now func() time.Time, since func(time.Time) time.Duration) {
	e.now = now
	e.since = since
}

var Percentile = percentile
