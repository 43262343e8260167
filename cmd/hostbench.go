package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hamzali/hostbench"
	"github.com/hamzali/hostbench/conf"
	"github.com/hamzali/hostbench/database"
	"github.com/hamzali/hostbench/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "hostbench",
		Short:        "Benchmark per host aggregation queries against a time series store",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
	}

	flags := conf.Bind(cmd.Flags())

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		config, err := flags.Load(cmd.Flags())
		if err != nil {
			return err
		}

		return run(cmd.Context(), config, cmd.OutOrStdout(), cmd.ErrOrStderr())
	}

	return cmd
}

func run(ctx context.Context, config *conf.Config, stdout, stderr io.Writer) error {
	errLogger := log.New(stderr, "", log.Lmsgprefix)
	infoLogger := log.New(stdout, "", log.Lmsgprefix)

	if err := config.Validate(); err != nil {
		return err
	}

	db, err := database.New(ctx, database.Options{
		Driver:  config.Driver,
		Dialect: config.Dialect,
		DSN:     config.DSN(),
		// one per worker and one for the enumerator
		MaxOpenConns: config.WorkerCount + 1,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	var (
		enumerator    hostbench.Enumerator = db
		plan          hostbench.Resolver
		parseFailures int
	)

	if config.File != "" {
		p, err := loadPlan(config.File, errLogger)
		if err != nil {
			return err
		}

		enumerator, plan = p, p
		parseFailures = p.ParseFailures
	}

	units, err := enumerator.Enumerate(ctx)
	if err != nil {
		return err
	}

	infoLogger.Printf("benchmarking %d hosts with %d workers...", len(units), config.WorkerCount)

	recorder := metrics.NewRecorder()

	runner := &hostbench.Runner{
		Connector:   db,
		Concurrency: config.WorkerCount,
		Plan:        plan,
		Executor:    hostbench.NewExecutor(time.Duration(config.QueryTimeout)),
		OnSample: func(s hostbench.TimingSample) {
			recorder.ObserveSample(s)

			if !config.Quiet {
				infoLogger.Println(hostbench.FormatSample(s))
			}
		},
		OnFailure: func(e *hostbench.TaskError) {
			recorder.ObserveFailure(e)
			errLogger.Println(e)
		},
	}

	report, err := runner.Run(ctx, units)

	report.ParseFailures = parseFailures
	infoLogger.Print(hostbench.FormatReport(report))

	if config.MetricsFile != "" {
		if err := recorder.WriteFile(config.MetricsFile); err != nil {
			errLogger.Println(err)
		}
	}

	if err != nil {
		return err
	}

	if n := len(report.Failures); n > 0 {
		return errors.Errorf("%d tasks failed", n)
	}

	return nil
}

func loadPlan(file string, errLogger *log.Logger) (*hostbench.Plan, error) {
	reader, err := hostbench.ReadCsv(file)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return hostbench.LoadPlan(reader, func(err error) {
		errLogger.Println(err)
	})
}
