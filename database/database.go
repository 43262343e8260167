package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	"github.com/hamzali/hostbench"
)

var ErrDBNotInitialized = errors.New("database connection not initialized")

// Options selects the driver, the SQL dialect and the connection limit.
type Options struct {
	// Driver is one of postgres, pgx or sqlite.
	Driver string
	// Dialect defaults to the driver's dialect when empty.
	Dialect string
	DSN     string
	// MaxOpenConns caps the open connections when positive.
	MaxOpenConns int
}

type Database struct {
	conn    *sql.DB
	dialect Dialect
}

// PostgresDSN builds a key/value connection string.
func PostgresDSN(host, user, password, dbname string, port int, ssl bool) string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s",
		host, port, user, password, dbname,
	)
	if !ssl {
		dsn += " sslmode=disable"
	}

	return dsn
}

func New(ctx context.Context, opts Options) (*Database, error) {
	if _, ok := drivers[opts.Driver]; !ok {
		return nil, errors.Errorf("unknown driver %q", opts.Driver)
	}

	name := opts.Dialect
	if name == "" {
		name = drivers[opts.Driver]
	}

	dialect, err := LookupDialect(name)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, errors.Wrapf(hostbench.ErrConnection, "can't open db connection: %v", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxOpenConns)
	}

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()

		return nil, errors.Wrapf(hostbench.ErrConnection, "can't ping db: %v", err)
	}

	return &Database{conn: db, dialect: dialect}, nil
}

// Enumerate lists the distinct hosts of the query plan table.
func (db *Database) Enumerate(ctx context.Context) ([]hostbench.WorkUnit, error) {
	if db.conn == nil {
		return nil, ErrDBNotInitialized
	}

	rows, err := db.conn.QueryContext(ctx, db.dialect.Hosts)
	if err != nil {
		return nil, errors.Wrapf(hostbench.ErrQuery, "query for hosts to measure failed: %v", err)
	}
	defer rows.Close()

	var units []hostbench.WorkUnit

	for rows.Next() {
		var host string

		if err := rows.Scan(&host); err != nil {
			return nil, errors.Wrapf(hostbench.ErrQuery, "failed to scan host: %v", err)
		}

		units = append(units, hostbench.WorkUnit{Host: host})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(hostbench.ErrQuery, "failed to read hosts: %v", err)
	}

	return units, nil
}

// Connect takes a dedicated connection for one job.
func (db *Database) Connect(ctx context.Context) (hostbench.Session, error) {
	if db.conn == nil {
		return nil, ErrDBNotInitialized
	}

	conn, err := db.conn.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "connection to database failed")
	}

	return &Session{conn: conn, dialect: db.dialect}, nil
}

// Exec runs a statement outside of any session.
func (db *Database) Exec(ctx context.Context, query string, args ...interface{}) error {
	if db.conn == nil {
		return ErrDBNotInitialized
	}

	_, err := db.conn.ExecContext(ctx, query, args...)

	return errors.Wrap(err, "exec failed")
}

func (db *Database) Close() error {
	if db.conn == nil {
		return nil
	}

	return db.conn.Close()
}
