package hostbench

import (
	"fmt"
	"time"
)

// WorkUnit is one benchmarking target.
type WorkUnit struct {
	Host string
}

// TimeWindow is the half-open interval [Start, End) queried for a host.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(DateTimeLayout), w.End.Format(DateTimeLayout))
}

// QueryTask pairs a unit with one of its windows.
type QueryTask struct {
	Unit   WorkUnit
	Window TimeWindow
}

func (t QueryTask) String() string {
	return fmt.Sprintf("host: %s, window: %s", t.Unit.Host, t.Window)
}

// Bucket is one row of the per minute aggregation.
type Bucket struct {
	Max    float64
	Min    float64
	Minute time.Time
}

// TimingSample is the measured result of one QueryTask.
type TimingSample struct {
	Unit    WorkUnit
	Window  TimeWindow
	Elapsed time.Duration
	Buckets []Bucket
}

// Milliseconds returns the elapsed time as fractional milliseconds.
func (s TimingSample) Milliseconds() float64 {
	return float64(s.Elapsed) / float64(time.Millisecond)
}

// Summary holds the statistics of a run in milliseconds.
type Summary struct {
	Count          int
	Sum            float64
	Min            float64
	Max            float64
	Mean           float64
	Median         float64
	StdDev         float64
	Percentile95th float64
	Percentile99th float64
	Fastest        TimingSample
	Slowest        TimingSample
}

// Report is everything a run produced.
type Report struct {
	RunID         string
	Samples       []TimingSample
	Failures      []*TaskError
	ParseFailures int
	Summary       *Summary
	Elapsed       time.Duration
}
