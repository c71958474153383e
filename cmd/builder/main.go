package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/quantfoundry/universe-data/internal/config"
	"github.com/quantfoundry/universe-data/internal/database"
	"github.com/quantfoundry/universe-data/internal/model"
	"github.com/quantfoundry/universe-data/internal/repository"
	"github.com/quantfoundry/universe-data/internal/snapshot"
	"github.com/quantfoundry/universe-data/internal/state"
	"github.com/quantfoundry/universe-data/internal/universe"
	"github.com/quantfoundry/universe-data/internal/version"
)

// Exit codes: 2 for usage errors, 1 for operational failures, 0 otherwise.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

const defaultFields = "close,one_one_dot,one_one_high,one_one_low,pl,e_top,e_bot"

type options struct {
	action       string
	configPath   string
	universeID   string
	startDate    string
	endDate      string
	savedDir     string
	instrumentID string
	mode         string
	fields       string
	keepDays     int
}

func main() {
	var opts options
	flag.StringVar(&opts.action, "action", "", "one of: build, inspect, sync, cleanup")
	flag.StringVar(&opts.configPath, "config", "configs/builder.local.yaml", "path to config file")
	flag.StringVar(&opts.universeID, "universe_id", "", "universe to build or sync")
	flag.StringVar(&opts.startDate, "start_date", "", "first date, YYYY-MM-DD")
	flag.StringVar(&opts.endDate, "end_date", "", "last date, YYYY-MM-DD (inclusive)")
	flag.StringVar(&opts.savedDir, "saved_dir", "", "snapshot directory (overrides config)")
	flag.StringVar(&opts.instrumentID, "instrument_id", "", "symbol to inspect")
	flag.StringVar(&opts.mode, "mode", "print", "inspect output: print or graph")
	flag.StringVar(&opts.fields, "fields", defaultFields, "comma-separated snapshot columns to inspect")
	flag.IntVar(&opts.keepDays, "keep_days", -1, "cleanup retention in days")
	flag.Parse()

	// .env supplies local database credentials; absence is fine.
	_ = godotenv.Load()

	// Set up structured logging. Actions that load a config re-level it.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var code int
	switch opts.action {
	case "build":
		code = runBuild(opts, logger)
	case "sync":
		code = runSync(opts, logger)
	case "inspect":
		code = runInspect(opts, logger)
	case "cleanup":
		code = runCleanup(opts, logger)
	case "":
		fmt.Fprintln(os.Stderr, "missing required --action (build, inspect, sync, cleanup)")
		flag.Usage()
		code = exitUsage
	default:
		fmt.Fprintf(os.Stderr, "unknown action %q (want build, inspect, sync, cleanup)\n", opts.action)
		code = exitUsage
	}
	os.Exit(code)
}

// loadConfig reads and validates the config file, then swaps the default
// logger to the configured level.
func loadConfig(path string, logger *slog.Logger) (*config.BuilderConfig, *slog.Logger, error) {
	cfg, err := config.LoadAndValidate(path)
	if err != nil {
		return nil, logger, err
	}
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Logging.SlogLevel(),
	}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// signalContext returns a context cancelled by SIGINT/SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()
	return ctx, cancel
}

func runBuild(opts options, logger *slog.Logger) int {
	if opts.universeID == "" || opts.startDate == "" || opts.endDate == "" {
		fmt.Fprintln(os.Stderr, "build requires --universe_id, --start_date and --end_date")
		return exitUsage
	}
	start, err := model.ParseDate(opts.startDate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --start_date: %v\n", err)
		return exitUsage
	}
	end, err := model.ParseDate(opts.endDate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --end_date: %v\n", err)
		return exitUsage
	}

	cfg, logger, err := loadConfig(opts.configPath, logger)
	if err != nil {
		logger.Error("failed to load config", "error", err, "config", opts.configPath)
		return exitError
	}

	dir := opts.savedDir
	if dir == "" {
		dir = cfg.Snapshots.Dir
	}
	if dir == "" {
		fmt.Fprintln(os.Stderr, "build requires --saved_dir or snapshots.dir in the config")
		return exitUsage
	}

	logger.Info("starting builder",
		"version", version.Version,
		"commit", version.Commit,
		"instance_id", cfg.Instance.ID,
		"universe", opts.universeID,
		"start", opts.startDate,
		"end", opts.endDate,
	)

	ctx, cancel := signalContext(logger)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.Database.Postgres)
	if err != nil {
		logger.Error("failed to connect to database",
			"error", err,
			"conn", database.Redact(cfg.Database.Postgres),
		)
		return exitError
	}
	defer pool.Close()
	logger.Info("database connected", "conn", database.Redact(cfg.Database.Postgres))

	tables, err := repository.NewTableResolver(cfg.Tables.Environment)
	if err != nil {
		logger.Error("invalid table environment", "error", err)
		return exitError
	}

	members := repository.NewMembershipRepo(pool, tables, logger)
	prices := repository.NewPriceRepo(pool, tables, cfg.Build.StatsWindow, logger)
	actions := repository.NewActionRepo(pool, tables, logger)
	resolver := universe.NewResolver(members, prices, logger)

	store, err := snapshot.New(dir, cfg.Snapshots.CacheCapacity, logger)
	if err != nil {
		logger.Error("failed to open snapshot store", "error", err, "dir", dir)
		return exitError
	}

	hooks, err := state.NewHookRegistry().Build(cfg.Build.Hooks, logger)
	if err != nil {
		logger.Error("invalid hook configuration", "error", err)
		return exitError
	}

	builder := state.NewBuilder(state.Config{
		UniverseID:      opts.universeID,
		HistoryWindow:   cfg.Build.HistoryWindow,
		ExtremeLookback: cfg.Build.ExtremeLookback,
		Concurrency:     cfg.Build.Concurrency,
	}, resolver, prices, actions, store, hooks, logger)

	stats, err := builder.Run(ctx, start, end)
	if err != nil {
		logger.Error("build failed", "error", err, "run_id", stats.RunID)
		return exitError
	}

	fmt.Printf("run %s: %d days, %d snapshots, %d records (%d degraded) in %s\n",
		stats.RunID, stats.Days, stats.SnapshotsWritten,
		stats.Records, stats.DegradedRecords, stats.Elapsed.Round(time.Millisecond))
	return exitOK
}

func runSync(opts options, logger *slog.Logger) int {
	if opts.universeID == "" {
		fmt.Fprintln(os.Stderr, "sync requires --universe_id")
		return exitUsage
	}
	through := model.MidnightUTC(time.Now())
	if opts.endDate != "" {
		t, err := model.ParseDate(opts.endDate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --end_date: %v\n", err)
			return exitUsage
		}
		through = t
	}

	cfg, logger, err := loadConfig(opts.configPath, logger)
	if err != nil {
		logger.Error("failed to load config", "error", err, "config", opts.configPath)
		return exitError
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.Database.Postgres)
	if err != nil {
		logger.Error("failed to connect to database",
			"error", err,
			"conn", database.Redact(cfg.Database.Postgres),
		)
		return exitError
	}
	defer pool.Close()

	tables, err := repository.NewTableResolver(cfg.Tables.Environment)
	if err != nil {
		logger.Error("invalid table environment", "error", err)
		return exitError
	}
	if err := repository.EnsureSchema(ctx, pool, tables, logger); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		return exitError
	}

	members := repository.NewMembershipRepo(pool, tables, logger)
	applied, err := members.MaterializeEvents(ctx, opts.universeID, through)
	if err != nil {
		logger.Error("materialization failed", "error", err, "universe", opts.universeID)
		return exitError
	}

	// Verify the interval table after the write.
	intervals, err := members.AllIntervals(ctx, opts.universeID)
	if err != nil {
		logger.Error("failed to load intervals for verification", "error", err)
		return exitError
	}
	if ov := universe.FindOverlap(intervals); ov != nil {
		logger.Error("interval table is corrupt",
			"universe", ov.UniverseID,
			"symbol", ov.Symbol,
			"first_start", model.FormatDate(ov.A.Start),
			"second_start", model.FormatDate(ov.B.Start),
		)
		return exitError
	}

	pending, err := members.PendingEvents(ctx, opts.universeID)
	if err != nil {
		logger.Error("failed to count pending events", "error", err)
		return exitError
	}

	fmt.Printf("applied %d membership events for %s through %s (%d still pending)\n",
		applied, opts.universeID, model.FormatDate(through), len(pending))
	return exitOK
}

func runCleanup(opts options, logger *slog.Logger) int {
	if opts.savedDir == "" {
		fmt.Fprintln(os.Stderr, "cleanup requires --saved_dir")
		return exitUsage
	}
	if opts.keepDays < 0 {
		fmt.Fprintln(os.Stderr, "cleanup requires --keep_days >= 0")
		return exitUsage
	}

	store, err := snapshot.New(opts.savedDir, snapshot.DefaultCacheCapacity, logger)
	if err != nil {
		logger.Error("failed to open snapshot store", "error", err, "dir", opts.savedDir)
		return exitError
	}

	removed, err := store.Cleanup(opts.keepDays)
	if err != nil {
		logger.Error("cleanup failed", "error", err)
		return exitError
	}

	fmt.Printf("removed %d snapshots older than %d days\n", removed, opts.keepDays)
	return exitOK
}
