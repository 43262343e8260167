// Package metrics records benchmark samples and failures as prometheus
// metrics and exports them to a text file.
package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hamzali/hostbench"
)

const namespace = "hostbench"

// Recorder owns a private registry, so several runs in one process do not
// collide.
type Recorder struct {
	registry *prometheus.Registry

	QueryDuration *prometheus.HistogramVec
	Samples       prometheus.Counter
	Failures      *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Latency of the aggregation query per host.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"host"},
		),
		Samples: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "samples_total",
				Help:      "Number of successfully timed queries.",
			},
		),
		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failures_total",
				Help:      "Number of failed units and windows by kind.",
			},
			[]string{"kind"},
		),
	}

	r.registry.MustRegister(r.QueryDuration, r.Samples, r.Failures)

	return r
}

// ObserveSample is safe for concurrent use.
func (r *Recorder) ObserveSample(s hostbench.TimingSample) {
	r.QueryDuration.WithLabelValues(s.Unit.Host).Observe(s.Elapsed.Seconds())
	r.Samples.Inc()
}

// ObserveFailure is safe for concurrent use.
func (r *Recorder) ObserveFailure(e *hostbench.TaskError) {
	r.Failures.WithLabelValues(e.Label()).Inc()
}

// WriteFile writes the text exposition format to path.
func (r *Recorder) WriteFile(path string) error {
	return errors.Wrap(prometheus.WriteToTextfile(path, r.registry), "could not write metrics")
}
