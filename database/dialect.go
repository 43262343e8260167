package database

import (
	"time"

	"github.com/pkg/errors"

	"github.com/hamzali/hostbench"

	// database/sql drivers
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// drivers maps the supported driver names to their default dialect.
var drivers = map[string]string{
	"postgres": "postgres",
	"pgx":      "postgres",
	"sqlite":   "sqlite",
}

// Dialect holds the statements of one SQL flavour.
type Dialect struct {
	Name    string
	Hosts   string
	Windows string
	Buckets string

	// BindTime converts a window bound to a query argument.
	BindTime func(time.Time) interface{}
}

func bindNative(t time.Time) interface{} {
	return t
}

func bindText(t time.Time) interface{} {
	return t.UTC().Format(hostbench.DateTimeLayout)
}

const (
	pgHostsQuery   = `SELECT DISTINCT hostname FROM cpu_stats_queries`
	pgWindowsQuery = `SELECT start_time, end_time FROM cpu_stats_queries WHERE hostname = $1`
)

const pgBucketsQuery = `
SELECT max(usage) AS max,
       min(usage) AS min,
       date_trunc('minute', ts) AS minute
FROM cpu_usage
WHERE host = $1
  AND ts >= $2
  AND ts < $3
GROUP BY minute
ORDER BY minute;
`

const timescaleBucketsQuery = `
SELECT max(usage) AS max,
       min(usage) AS min,
       time_bucket('1 minute', ts) AS minute
FROM cpu_usage
WHERE host = $1
  AND ts >= $2
  AND ts < $3
GROUP BY minute
ORDER BY minute;
`

const sqliteBucketsQuery = `
SELECT max(usage) AS max,
       min(usage) AS min,
       strftime('%Y-%m-%d %H:%M:00', ts) AS minute
FROM cpu_usage
WHERE host = ?
  AND ts >= ?
  AND ts < ?
GROUP BY minute
ORDER BY minute;
`

var dialects = map[string]Dialect{
	"postgres": {
		Name:     "postgres",
		Hosts:    pgHostsQuery,
		Windows:  pgWindowsQuery,
		Buckets:  pgBucketsQuery,
		BindTime: bindNative,
	},
	"timescale": {
		Name:     "timescale",
		Hosts:    pgHostsQuery,
		Windows:  pgWindowsQuery,
		Buckets:  timescaleBucketsQuery,
		BindTime: bindNative,
	},
	"sqlite": {
		Name:     "sqlite",
		Hosts:    `SELECT DISTINCT hostname FROM cpu_stats_queries`,
		Windows:  `SELECT start_time, end_time FROM cpu_stats_queries WHERE hostname = ?`,
		Buckets:  sqliteBucketsQuery,
		BindTime: bindText,
	},
}

func LookupDialect(name string) (Dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return Dialect{}, errors.Errorf("unknown dialect %q", name)
	}

	return d, nil
}

// SupportedDriver reports whether name is a registered driver.
func SupportedDriver(name string) bool {
	_, ok := drivers[name]

	return ok
}
