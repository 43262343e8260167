package hostbench_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamzali/hostbench"
)

// fakeStore hands out sessions over an in memory plan.
type fakeStore struct {
	windows    map[string][]hostbench.TimeWindow
	failures   map[hostbench.QueryTask]error
	connectErr error
	resolveErr map[string]error

	open, peak, opened, closed int64
}

func newFakeStore(hosts, perHost int) *fakeStore {
	s := &fakeStore{
		windows:    map[string][]hostbench.TimeWindow{},
		failures:   map[hostbench.QueryTask]error{},
		resolveErr: map[string]error{},
	}

	base := time.Date(2017, 1, 1, 8, 0, 0, 0, time.UTC)

	for h := 0; h < hosts; h++ {
		host := fmt.Sprintf("host_%06d", h)

		for w := 0; w < perHost; w++ {
			start := base.Add(time.Duration(w) * time.Hour)
			s.windows[host] = append(s.windows[host], hostbench.TimeWindow{Start: start, End: start.Add(time.Hour)})
		}
	}

	return s
}

func (s *fakeStore) units() []hostbench.WorkUnit {
	var us []hostbench.WorkUnit
	for host := range s.windows {
		us = append(us, hostbench.WorkUnit{Host: host})
	}

	sort.Slice(us, func(i, j int) bool { return us[i].Host < us[j].Host })

	return us
}

func (s *fakeStore) Connect(ctx context.Context) (hostbench.Session, error) {
	if s.connectErr != nil {
		return nil, s.connectErr
	}

	n := atomic.AddInt64(&s.open, 1)
	atomic.AddInt64(&s.opened, 1)

	for {
		p := atomic.LoadInt64(&s.peak)
		if n <= p || atomic.CompareAndSwapInt64(&s.peak, p, n) {
			break
		}
	}

	return &fakeSession{store: s}, nil
}

type fakeSession struct {
	store  *fakeStore
	closed bool
}

func (f *fakeSession) Windows(ctx context.Context, u hostbench.WorkUnit) ([]hostbench.TimeWindow, error) {
	if err := f.store.resolveErr[u.Host]; err != nil {
		return nil, err
	}

	return f.store.windows[u.Host], nil
}

func (f *fakeSession) Buckets(ctx context.Context, task hostbench.QueryTask) ([]hostbench.Bucket, error) {
	if f.closed {
		return nil, errors.New("session used after close")
	}

	if err := f.store.failures[task]; err != nil {
		return nil, err
	}

	time.Sleep(time.Millisecond)

	return []hostbench.Bucket{{Max: 99.5, Min: 0.5, Minute: task.Window.Start}}, nil
}

func (f *fakeSession) Close() error {
	f.closed = true

	atomic.AddInt64(&f.store.open, -1)
	atomic.AddInt64(&f.store.closed, 1)

	return nil
}

type taskKey struct {
	host  string
	start time.Time
}

func keys(samples []hostbench.TimingSample) map[taskKey]int {
	m := map[taskKey]int{}
	for _, s := range samples {
		m[taskKey{s.Unit.Host, s.Window.Start}]++
	}

	return m
}

// steppingExecutor times the n-th query of a run as n milliseconds, so two
// runs over the same tasks measure the same set of durations in any order.
func steppingExecutor() *hostbench.Executor {
	var n int64

	e := hostbench.NewExecutor(0)
	e.SetClock(time.Now, func(time.Time) time.Duration {
		return time.Duration(atomic.AddInt64(&n, 1)) * time.Millisecond
	})

	return e
}

func TestRunner(t *testing.T) {
	t.Run("should collect every sample for any concurrency", func(st *testing.T) {
		hosts, perHost := 8, 3

		for concurrency := 1; concurrency <= hosts; concurrency++ {
			store := newFakeStore(hosts, perHost)
			runner := &hostbench.Runner{Connector: store, Concurrency: concurrency}

			report, err := runner.Run(context.Background(), store.units())
			require.NoError(st, err)

			assert.Len(st, report.Samples, hosts*perHost)
			assert.Empty(st, report.Failures)
			assert.Equal(st, hosts*perHost, report.Summary.Count)
			assert.LessOrEqual(st, store.peak, int64(concurrency))
			assert.Equal(st, int64(hosts), store.opened, "one session per unit")
			assert.Equal(st, store.opened, store.closed)

			for k, n := range keys(report.Samples) {
				assert.Equal(st, 1, n, "task %v collected %d times", k, n)
			}
		}
	})

	t.Run("should yield the same samples with one or eight workers", func(st *testing.T) {
		store := newFakeStore(8, 4)

		one, err := (&hostbench.Runner{Connector: store, Concurrency: 1, Executor: steppingExecutor()}).
			Run(context.Background(), store.units())
		require.NoError(st, err)

		eight, err := (&hostbench.Runner{Connector: store, Concurrency: 8, Executor: steppingExecutor()}).
			Run(context.Background(), store.units())
		require.NoError(st, err)

		assert.Equal(st, keys(one.Samples), keys(eight.Samples))
		assert.Equal(st, 32, one.Summary.Count)
		assert.InDelta(st, 16.5, one.Summary.Mean, 1e-9)
		assert.Greater(st, one.Summary.StdDev, 0.0)

		ignoreSamples := cmpopts.IgnoreFields(hostbench.Summary{}, "Fastest", "Slowest")
		if diff := cmp.Diff(one.Summary, eight.Summary, ignoreSamples, approx); diff != "" {
			st.Fatalf("summaries differ (-one +eight):\n%s", diff)
		}
	})

	t.Run("should send samples of one unit in window order", func(st *testing.T) {
		store := newFakeStore(4, 5)

		report, err := (&hostbench.Runner{Connector: store, Concurrency: 4}).Run(context.Background(), store.units())
		require.NoError(st, err)

		last := map[string]time.Time{}

		for _, s := range report.Samples {
			if prev, ok := last[s.Unit.Host]; ok {
				assert.True(st, s.Window.Start.After(prev), "host %s out of order", s.Unit.Host)
			}

			last[s.Unit.Host] = s.Window.Start
		}
	})

	t.Run("should not fail for a unit without windows", func(st *testing.T) {
		store := newFakeStore(2, 2)
		store.windows["host_idle"] = nil

		report, err := (&hostbench.Runner{Connector: store, Concurrency: 2}).Run(context.Background(), store.units())
		require.NoError(st, err)

		assert.Len(st, report.Samples, 4)
		assert.Empty(st, report.Failures)
	})

	t.Run("should skip and report a failed window", func(st *testing.T) {
		store := newFakeStore(3, 2)

		failed := hostbench.QueryTask{
			Unit:   hostbench.WorkUnit{Host: "host_000001"},
			Window: store.windows["host_000001"][0],
		}
		store.failures[failed] = errors.Wrap(hostbench.ErrResultShape, "no rows returned")

		var reported []*hostbench.TaskError

		var mu sync.Mutex

		runner := &hostbench.Runner{
			Connector:   store,
			Concurrency: 3,
			OnFailure: func(e *hostbench.TaskError) {
				mu.Lock()
				reported = append(reported, e)
				mu.Unlock()
			},
		}

		report, err := runner.Run(context.Background(), store.units())
		require.NoError(st, err)

		assert.Len(st, report.Samples, 5)
		assert.Equal(st, 5, report.Summary.Count)
		require.Len(st, report.Failures, 1)
		assert.Equal(st, report.Failures, reported)

		f := report.Failures[0]
		assert.ErrorIs(st, f, hostbench.ErrResultShape)
		assert.Equal(st, "host_000001", f.Unit.Host)
		require.NotNil(st, f.Window)
		assert.Equal(st, failed.Window, *f.Window)
		assert.Contains(st, f.Error(), "host_000001")
		assert.Contains(st, f.Error(), failed.Window.String())

		// the second window of the failing host still ran
		_, ok := keys(report.Samples)[taskKey{"host_000001", store.windows["host_000001"][1].Start}]
		assert.True(st, ok)
	})

	t.Run("should classify store errors as query errors", func(st *testing.T) {
		store := newFakeStore(1, 1)

		task := hostbench.QueryTask{Unit: hostbench.WorkUnit{Host: "host_000000"}, Window: store.windows["host_000000"][0]}
		cause := errors.New("relation \"cpu_usage\" does not exist")
		store.failures[task] = cause

		report, err := (&hostbench.Runner{Connector: store, Concurrency: 1}).Run(context.Background(), store.units())

		assert.ErrorIs(st, err, hostbench.ErrEmptyInput)
		require.Len(st, report.Failures, 1)
		assert.ErrorIs(st, report.Failures[0], hostbench.ErrQuery)
		assert.Equal(st, cause, report.Failures[0].Cause())
		assert.Equal(st, "query", report.Failures[0].Label())
		assert.Nil(st, report.Summary)
	})

	t.Run("should report connection failures per unit", func(st *testing.T) {
		store := newFakeStore(3, 2)
		store.connectErr = errors.New("connection refused")

		report, err := (&hostbench.Runner{Connector: store, Concurrency: 2}).Run(context.Background(), store.units())

		assert.ErrorIs(st, err, hostbench.ErrEmptyInput)
		require.Len(st, report.Failures, 3)

		hosts := map[string]bool{}

		for _, f := range report.Failures {
			assert.ErrorIs(st, f, hostbench.ErrConnection)
			assert.Nil(st, f.Window)
			hosts[f.Unit.Host] = true
		}

		assert.Len(st, hosts, 3)
	})

	t.Run("should report resolver failures and keep siblings", func(st *testing.T) {
		store := newFakeStore(3, 2)
		store.resolveErr["host_000002"] = errors.New("query for periods failed")

		report, err := (&hostbench.Runner{Connector: store, Concurrency: 3}).Run(context.Background(), store.units())
		require.NoError(st, err)

		assert.Len(st, report.Samples, 4)
		require.Len(st, report.Failures, 1)
		assert.ErrorIs(st, report.Failures[0], hostbench.ErrQuery)
		assert.Equal(st, "host_000002", report.Failures[0].Unit.Host)
	})

	t.Run("should resolve windows from the plan when set", func(st *testing.T) {
		store := newFakeStore(2, 3)

		plan, err := hostbench.LoadPlan(
			strings.NewReader("hostname,start_time,end_time\nhost_000000,2017-01-01 08:00:00,2017-01-01 09:00:00\n"),
			nil,
		)
		require.NoError(st, err)

		units, err := plan.Enumerate(context.Background())
		require.NoError(st, err)

		report, err := (&hostbench.Runner{Connector: store, Concurrency: 2, Plan: plan}).Run(context.Background(), units)
		require.NoError(st, err)

		require.Len(st, report.Samples, 1)
		assert.Equal(st, "host_000000", report.Samples[0].Unit.Host)
	})

	t.Run("should call the sample hook once per sample", func(st *testing.T) {
		store := newFakeStore(4, 2)

		var hooked int64

		runner := &hostbench.Runner{
			Connector:   store,
			Concurrency: 2,
			OnSample:    func(hostbench.TimingSample) { atomic.AddInt64(&hooked, 1) },
		}

		report, err := runner.Run(context.Background(), store.units())
		require.NoError(st, err)

		assert.Equal(st, int64(len(report.Samples)), hooked)
		assert.NotEmpty(st, report.RunID)
	})

	t.Run("should reject invalid concurrency", func(st *testing.T) {
		store := newFakeStore(1, 1)

		report, err := (&hostbench.Runner{Connector: store}).Run(context.Background(), store.units())

		assert.ErrorIs(st, err, hostbench.ErrInvalidConcurrency)
		assert.Empty(st, report.Samples)
	})
}
