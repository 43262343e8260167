package hostbench

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// RunPool runs job once per unit with at most concurrency jobs in flight and
// returns after every job has finished. Jobs report their own failures, so
// one failing unit never stops the others.
func RunPool(ctx context.Context, units []WorkUnit, concurrency int, job func(ctx context.Context, u WorkUnit)) error {
	if concurrency < 1 {
		return errors.Wrapf(ErrInvalidConcurrency, "got %d", concurrency)
	}

	var g errgroup.Group

	g.SetLimit(concurrency)

	for _, u := range units {
		// Go blocks while concurrency jobs are running.
		g.Go(func() error {
			job(ctx, u)

			return nil
		})
	}

	return g.Wait()
}
