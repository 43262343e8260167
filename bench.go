package hostbench

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Enumerator lists the units of a run.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]WorkUnit, error)
}

// Resolver returns the windows to benchmark for a unit.
type Resolver interface {
	Windows(ctx context.Context, u WorkUnit) ([]TimeWindow, error)
}

// Session is the store connection owned by a single job.
type Session interface {
	Querier
	Resolver
	Close() error
}

type Connector interface {
	Connect(ctx context.Context) (Session, error)
}

// Runner dispatches one job per unit over a bounded pool and aggregates the
// collected samples. OnSample and OnFailure are called from the job
// goroutines and must be safe for concurrent use.
type Runner struct {
	Connector   Connector
	Concurrency int

	// Plan resolves windows instead of the job's session when set.
	Plan Resolver

	// Executor defaults to an executor without query timeout.
	Executor *Executor

	OnSample  func(TimingSample)
	OnFailure func(*TaskError)
}

// Run benchmarks every unit. The returned report always carries the samples
// and failures that were collected, also when aggregation fails.
func (r *Runner) Run(ctx context.Context, units []WorkUnit) (*Report, error) {
	started := time.Now()

	exec := r.Executor
	if exec == nil {
		exec = NewExecutor(0)
	}

	samples := NewCollector[TimingSample]()
	failures := NewCollector[*TaskError]()

	poolErr := RunPool(ctx, units, r.Concurrency, func(ctx context.Context, u WorkUnit) {
		r.job(ctx, exec, u, samples, failures)
	})

	report := &Report{
		RunID:    uuid.NewString(),
		Samples:  samples.Drain(),
		Failures: failures.Drain(),
		Elapsed:  time.Since(started),
	}

	if poolErr != nil {
		return report, poolErr
	}

	summary, err := Aggregate(report.Samples)
	if err != nil {
		return report, err
	}

	report.Summary = summary

	return report, nil
}

func (r *Runner) job(
	ctx context.Context,
	exec *Executor,
	u WorkUnit,
	samples *Collector[TimingSample],
	failures *Collector[*TaskError],
) {
	fail := func(kind error, w *TimeWindow, err error) {
		te := newTaskError(kind, u, w, err)
		failures.Send(te)

		if r.OnFailure != nil {
			r.OnFailure(te)
		}
	}

	session, err := r.Connector.Connect(ctx)
	if err != nil {
		fail(ErrConnection, nil, err)

		return
	}

	defer func() {
		if err := session.Close(); err != nil {
			fail(ErrConnection, nil, err)
		}
	}()

	var resolver Resolver = session
	if r.Plan != nil {
		resolver = r.Plan
	}

	windows, err := resolver.Windows(ctx, u)
	if err != nil {
		fail(ErrQuery, nil, err)

		return
	}

	for _, w := range windows {
		sample, err := exec.Execute(ctx, session, QueryTask{Unit: u, Window: w})
		if err != nil {
			fail(classify(err), &w, err)

			continue
		}

		samples.Send(sample)

		if r.OnSample != nil {
			r.OnSample(sample)
		}
	}
}
