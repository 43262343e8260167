package hostbench

import (
	"context"
	"time"
)

// Querier runs the aggregation query of one task. Implementations validate
// the shape of the result and return errors wrapping ErrResultShape.
type Querier interface {
	Buckets(ctx context.Context, task QueryTask) ([]Bucket, error)
}

// Executor times single aggregation queries.
type Executor struct {
	// Timeout bounds each query when positive.
	Timeout time.Duration

	now   func() time.Time
	since func(time.Time) time.Duration
}

func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{
		Timeout: timeout,
		now:     time.Now,
		since:   time.Since,
	}
}

// Execute runs task on q. Only the query call itself is timed. Failed
// queries are not retried.
func (e *Executor) Execute(ctx context.Context, q Querier, task QueryTask) (TimingSample, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	start := e.now()
	buckets, err := q.Buckets(ctx, task)
	elapsed := e.since(start)

	if err != nil {
		return TimingSample{}, err
	}

	return TimingSample{
		Unit:    task.Unit,
		Window:  task.Window,
		Elapsed: elapsed,
		Buckets: buckets,
	}, nil
}
