package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"ozzus/sitecheck/internal/aggregator"
	apihttp "ozzus/sitecheck/internal/api/http"
	"ozzus/sitecheck/internal/checks"
	"ozzus/sitecheck/internal/config"
	"ozzus/sitecheck/internal/lib/logger/sl"
	"ozzus/sitecheck/internal/report"
	"ozzus/sitecheck/internal/repository"
	"ozzus/sitecheck/internal/repository/kafka"
	"ozzus/sitecheck/internal/service"
	"ozzus/sitecheck/internal/source"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sitecheck [flags] [URL...]",
	Short: "Check the availability of websites concurrently",
	Long: `sitecheck requests every URL with a pool of workers, prints one line per
result as it arrives and writes an ordered report when the round is done.

URLs come from positional arguments and from --file (one per line, text after
'#' is ignored). Duplicates are checked once. With no URLs at all the command
exits with code 2.

With --period the check repeats every N seconds and each round writes
status_round_N.json instead of status.json.

With --assert-header "Name: Value" every response must carry the header with
exactly that value. Header names match case-insensitively.

Report fields (status.json or status_round_N.json):
  url              The URL as given.
  status           HTTP status code on success, error message when no response
                   was received, or "<code> <detail>" when the header assertion
                   failed.
  responseTimeMs   Response time of the final attempt in milliseconds.
  timestampEpochS  When the final attempt completed, seconds since the epoch.
  httpStatus       HTTP status code, present when an assertion is configured.
  assertion        Assertion result, present when an assertion is configured.

Every flag can also be set with a SITECHECK_ environment variable or in the
file given to --config, e.g. SITECHECK_CHECKS_WORKERS=8.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "path to a config file (yaml, toml or json)")
	config.RegisterFlags(rootCmd.Flags())

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})
}

func run(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return &usageError{err: err}
	}

	log := setupLogger(cfg.Env, cfg.LogLevel)

	urls, err := source.Load(cfg.Source.File, args)
	if err != nil {
		if errors.Is(err, source.ErrNoURLs) {
			return &usageError{err: err}
		}
		return err
	}

	runID := uuid.NewString()
	log = log.With(slog.String("run_id", runID))

	log.Info("starting sitecheck",
		slog.String("env", cfg.Env),
		slog.Int("urls", len(urls)),
		slog.Int("workers", cfg.Checks.Workers),
		slog.Duration("timeout", cfg.GetTimeout()),
		slog.Int("retries", cfg.Checks.Retries),
		slog.Duration("period", cfg.GetPeriod()),
	)

	format, _ := report.ParseFormat(cfg.Report.Format)
	assertion := cfg.HeaderAssertion()
	colorize := isatty.IsTerminal(os.Stdout.Fd()) && os.Getenv("NO_COLOR") == ""

	opts := []service.Option{
		service.WithLogger(log),
		service.WithRunID(runID),
		service.WithReportWriter(report.NewWriter(cfg.Report.Dir, format)),
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		publisher := repository.NewKafkaOutcomePublisher(producer, log)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error("failed to close kafka producer", sl.Err(err))
			}
		}()
		opts = append(opts, service.WithPublisher(publisher))
		log.Info("publishing outcomes to kafka",
			slog.Any("brokers", cfg.Kafka.Brokers),
			slog.String("topic", cfg.Kafka.Topic),
		)
	}

	if cfg.Source.Watch {
		if cfg.Periodic() {
			watcher, err := source.NewWatcher(cfg.Source.File, log)
			if err != nil {
				return err
			}
			defer watcher.Close()
			opts = append(opts,
				service.WithRunner(watcher),
				service.WithURLSource(source.NewFileSource(watcher, cfg.Source.File, args)),
			)
		} else {
			log.Warn("--watch has no effect without --period")
		}
	}

	var hub *apihttp.Hub
	var statusServer *nethttp.Server
	if cfg.Server.Listen != "" {
		hub = apihttp.NewHub(log)
		statusServer = &nethttp.Server{
			Addr:              cfg.Server.Listen,
			ReadHeaderTimeout: 5 * time.Second,
		}
		opts = append(opts, service.WithListener(hub), service.WithStatusServer(statusServer))
	}

	monitor := service.NewMonitor(
		service.Config{
			Workers:    cfg.Checks.Workers,
			Timeout:    cfg.GetTimeout(),
			Retries:    cfg.Checks.Retries,
			RetryDelay: cfg.GetRetryDelay(),
			Period:     cfg.GetPeriod(),
			Assertion:  assertion,
		},
		checks.NewHTTPChecker(cfg.Checks.Method, cfg.Checks.UserAgent),
		aggregator.NewPrinter(os.Stdout, colorize, assertion != nil),
		urls,
		opts...,
	)

	if statusServer != nil {
		if cfg.Env != envLocal {
			gin.SetMode(gin.ReleaseMode)
		}
		statusServer.Handler = apihttp.NewRouter(apihttp.NewHealthController(monitor), hub, log)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := monitor.Run(ctx); err != nil {
		return err
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		log.Info("interrupted, exiting")
	}
	return nil
}
