package conf

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/hamzali/hostbench/database"
)

var (
	ErrInvalidWorkerCount = errors.New("worker count must be at least 1")
	ErrTooManyWorkers     = errors.New("worker count exceeds max connections")
	ErrUnknownDriver      = errors.New("unknown driver")
	ErrMissingEndpoint    = errors.New("endpoint is required for the sqlite driver")
)

type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"db"`
	SSL      bool   `json:"ssl"`
}

// Duration reads "1.5s" style strings or nanoseconds from JSON.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	if s, err := strconv.Unquote(string(b)); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return errors.Wrap(err, "invalid duration")
		}

		*d = Duration(v)

		return nil
	}

	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.Wrap(err, "invalid duration")
	}

	*d = Duration(n)

	return nil
}

type Config struct {
	// File is the CSV query plan. The plan table of the store is used when
	// empty.
	File string `json:"-"`

	WorkerCount int `json:"worker_count"`
	// MaxConnections is the store's connection limit. Zero skips the check.
	MaxConnections int `json:"max_connections"`

	Driver  string `json:"driver"`
	Dialect string `json:"dialect"`
	// Endpoint is a full DSN or URL. Postgres is used to build one when empty.
	Endpoint string `json:"endpoint"`

	QueryTimeout Duration `json:"query_timeout"`
	MetricsFile  string   `json:"metrics_file"`
	Quiet        bool     `json:"quiet"`

	Postgres PostgresConfig `json:"postgres"`
}

// DSN returns the connection string of the store.
func (c *Config) DSN() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}

	p := c.Postgres

	return database.PostgresDSN(p.Host, p.User, p.Password, p.Database, p.Port, p.SSL)
}

func (c *Config) Validate() error {
	if c.WorkerCount < 1 {
		return errors.Wrapf(ErrInvalidWorkerCount, "got %d", c.WorkerCount)
	}

	if c.MaxConnections > 0 && c.WorkerCount > c.MaxConnections {
		return errors.Wrapf(ErrTooManyWorkers, "%d > %d", c.WorkerCount, c.MaxConnections)
	}

	if !database.SupportedDriver(c.Driver) {
		return errors.Wrapf(ErrUnknownDriver, "%q", c.Driver)
	}

	if c.Driver == "sqlite" && c.Endpoint == "" {
		return ErrMissingEndpoint
	}

	return nil
}

// read config file.
func ReadConfig(path string, config *Config) error {
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "could not read file")
	}

	err = json.Unmarshal(b, config)
	if err != nil {
		return errors.Wrap(err, "could not parse json")
	}

	return nil
}

const (
	defaultPostgresPort = 5432
	defaultWorkerCount  = 4
)

var DefaultConfig = Config{
	WorkerCount: defaultWorkerCount,
	Driver:      "postgres",
	File:        "",
	Postgres: PostgresConfig{
		Host:     "localhost",
		Port:     defaultPostgresPort,
		SSL:      false,
		Database: "postgres",
		User:     "postgres",
		Password: "",
	},
}

// Flags holds the values of a bound flag set until they are applied on top
// of the file configuration.
type Flags struct {
	confPath string
	file     string

	workerCount, maxConns, port int

	driver, dialect, endpoint string
	host, user, password, db  string
	metricsFile               string
	ssl, quiet                bool
	queryTimeout              time.Duration
}

// Bind registers the configuration flags on fs.
func Bind(fs *pflag.FlagSet) *Flags {
	f := &Flags{}

	fs.StringVar(&f.confPath, "config", "", "custom config path")
	fs.StringVar(&f.file, "file", "", "csv file input path for query parameters, - for stdin")
	fs.IntVar(&f.workerCount, "worker", DefaultConfig.WorkerCount, "worker count")
	fs.IntVar(&f.maxConns, "max-connections", DefaultConfig.MaxConnections, "store connection limit, 0 to skip the check")
	fs.StringVar(&f.driver, "driver", DefaultConfig.Driver, "database driver: postgres, pgx or sqlite")
	fs.StringVar(&f.dialect, "dialect", DefaultConfig.Dialect, "sql dialect: postgres, timescale or sqlite")
	fs.StringVar(&f.endpoint, "endpoint", DefaultConfig.Endpoint, "connection string or url")
	fs.StringVar(&f.host, "host", DefaultConfig.Postgres.Host, "database host")
	fs.IntVar(&f.port, "port", DefaultConfig.Postgres.Port, "database port")
	fs.StringVar(&f.user, "user", DefaultConfig.Postgres.User, "database user")
	fs.StringVar(&f.password, "password", DefaultConfig.Postgres.Password, "database password")
	fs.StringVar(&f.db, "db", DefaultConfig.Postgres.Database, "database schema name")
	fs.BoolVar(&f.ssl, "ssl", DefaultConfig.Postgres.SSL, "database ssl mode")
	fs.DurationVar(&f.queryTimeout, "query-timeout", time.Duration(DefaultConfig.QueryTimeout), "timeout of a single query, 0 for none")
	fs.StringVar(&f.metricsFile, "metrics-file", DefaultConfig.MetricsFile, "write prometheus metrics to this file")
	fs.BoolVar(&f.quiet, "quiet", DefaultConfig.Quiet, "do not print a line per sample")

	return f
}

// Load starts from the defaults, applies the config file and then every flag
// set explicitly on fs.
func (f *Flags) Load(fs *pflag.FlagSet) (*Config, error) {
	config := DefaultConfig

	// load user defined custom config file
	err := ReadConfig(f.confPath, &config)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", f.confPath)
	}

	config.File = f.file

	// provided flags always override configuration
	fs.Visit(func(fl *pflag.Flag) {
		switch fl.Name {
		case "worker":
			config.WorkerCount = f.workerCount
		case "max-connections":
			config.MaxConnections = f.maxConns
		case "driver":
			config.Driver = f.driver
		case "dialect":
			config.Dialect = f.dialect
		case "endpoint":
			config.Endpoint = f.endpoint
		case "host":
			config.Postgres.Host = f.host
		case "port":
			config.Postgres.Port = f.port
		case "db":
			config.Postgres.Database = f.db
		case "user":
			config.Postgres.User = f.user
		case "password":
			config.Postgres.Password = f.password
		case "ssl":
			config.Postgres.SSL = f.ssl
		case "query-timeout":
			config.QueryTimeout = Duration(f.queryTimeout)
		case "metrics-file":
			config.MetricsFile = f.metricsFile
		case "quiet":
			config.Quiet = f.quiet
		}
	})

	return &config, nil
}

// initialize config with defaults.
func InitConfig(name string, args []string) (*Config, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	f := Bind(fs)

	err := fs.Parse(args)
	if err != nil {
		return nil, errors.Wrap(err, "flag error")
	}

	return f.Load(fs)
}
