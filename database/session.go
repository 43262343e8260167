package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/hamzali/hostbench"
)

const bucketColumns = 3

// Session is a single connection owned by one job. It is not safe for
// concurrent use.
type Session struct {
	conn    *sql.Conn
	dialect Dialect
}

// Windows lists the query plan of one host.
func (s *Session) Windows(ctx context.Context, u hostbench.WorkUnit) ([]hostbench.TimeWindow, error) {
	rows, err := s.conn.QueryContext(ctx, s.dialect.Windows, u.Host)
	if err != nil {
		return nil, errors.Wrapf(err, "query for periods for host %s failed", u.Host)
	}
	defer rows.Close()

	var windows []hostbench.TimeWindow

	for rows.Next() {
		var start, end timestamp

		if err := rows.Scan(&start, &end); err != nil {
			return nil, errors.Wrap(err, "failed to scan period")
		}

		windows = append(windows, hostbench.TimeWindow{Start: start.Time, End: end.Time})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read periods")
	}

	return windows, nil
}

// Buckets runs the per minute aggregation of task and reads every row.
func (s *Session) Buckets(ctx context.Context, task hostbench.QueryTask) ([]hostbench.Bucket, error) {
	rows, err := s.conn.QueryContext(
		ctx,
		s.dialect.Buckets,
		task.Unit.Host,
		s.dialect.BindTime(task.Window.Start),
		s.dialect.BindTime(task.Window.End),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read columns")
	}

	if len(cols) != bucketColumns {
		return nil, errors.Wrapf(hostbench.ErrResultShape, "expected %d columns but got %d", bucketColumns, len(cols))
	}

	var buckets []hostbench.Bucket

	for rows.Next() {
		var max, min sql.NullFloat64

		var minute timestamp

		if err := rows.Scan(&max, &min, &minute); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}

		if !max.Valid || !min.Valid {
			return nil, errors.Wrap(hostbench.ErrResultShape, "null max or min")
		}

		buckets = append(buckets, hostbench.Bucket{Max: max.Float64, Min: min.Float64, Minute: minute.Time})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read rows")
	}

	if len(buckets) == 0 {
		return nil, errors.Wrap(hostbench.ErrResultShape, "no rows returned")
	}

	return buckets, nil
}

// Close hands the connection back to the pool.
func (s *Session) Close() error {
	return s.conn.Close()
}

var timestampLayouts = []string{
	hostbench.DateTimeLayout,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// timestamp scans native time values as well as text produced by drivers
// without a time type.
type timestamp struct {
	time.Time
}

func (t *timestamp) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v

		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		return errors.Wrap(hostbench.ErrResultShape, "null timestamp")
	default:
		return errors.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		v, err := time.Parse(layout, s)
		if err == nil {
			t.Time = v

			return nil
		}
	}

	return errors.Errorf("unrecognized timestamp %q", s)
}
