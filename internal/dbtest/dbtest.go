// Package dbtest seeds SQLite files with the benchmark schema for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hamzali/hostbench"
	"github.com/hamzali/hostbench/database"
)

var schema = []string{
	`CREATE TABLE cpu_usage (ts TEXT NOT NULL, host TEXT NOT NULL, usage REAL)`,
	`CREATE TABLE cpu_stats_queries (hostname TEXT NOT NULL, start_time TEXT NOT NULL, end_time TEXT NOT NULL)`,
}

type Usage struct {
	Host  string
	TS    time.Time
	Usage float64
}

type Period struct {
	Host  string
	Start time.Time
	End   time.Time
}

func format(t time.Time) string {
	return t.UTC().Format(hostbench.DateTimeLayout)
}

// NewSQLite creates a seeded database file in a temporary directory and
// returns its path.
func NewSQLite(t testing.TB, usage []Usage, periods []Period) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bench.db")

	for _, stmt := range schema {
		Exec(t, path, stmt)
	}

	for _, u := range usage {
		Exec(t, path, `INSERT INTO cpu_usage (ts, host, usage) VALUES (?, ?, ?)`, format(u.TS), u.Host, u.Usage)
	}

	for _, p := range periods {
		Exec(t, path, `INSERT INTO cpu_stats_queries (hostname, start_time, end_time) VALUES (?, ?, ?)`,
			p.Host, format(p.Start), format(p.End))
	}

	return path
}

// Exec runs one statement against the file at path.
func Exec(t testing.TB, path, query string, args ...interface{}) {
	t.Helper()

	ctx := context.Background()

	db, err := database.New(ctx, database.Options{Driver: "sqlite", DSN: path, MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("could not open %s: %v", path, err)
	}
	defer db.Close()

	if err := db.Exec(ctx, query, args...); err != nil {
		t.Fatalf("could not exec %q: %v", query, err)
	}
}

// Minute returns 2017-01-01 08:00 UTC plus m minutes.
func Minute(m int) time.Time {
	return time.Date(2017, 1, 1, 8, 0, 0, 0, time.UTC).Add(time.Duration(m) * time.Minute)
}
