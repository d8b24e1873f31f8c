// capledger: capacity ledger for finite resources.
//
// Keeps the load timeline of every resource of a production plan, reports
// capacity per time bucket and serves the reports over a terminal UI or an
// HTTP API.
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

	"github.com/capledger/capledger/internal/config"
	"github.com/capledger/capledger/internal/database"
	"github.com/capledger/capledger/internal/database/seed"
	"github.com/capledger/capledger/internal/httpserver"
	"github.com/capledger/capledger/internal/services/capacity"
	"github.com/capledger/capledger/internal/tui"
)

// Build information (set via ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

type options struct {
	configPath  string
	migrateOnly bool
	seedData    bool
	export      bool
	serve       bool
	inspect     string
	debugMode   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.BoolVar(&opts.migrateOnly, "migrate-only", false, "Run migrations and exit")
	flag.BoolVar(&opts.seedData, "seed", false, "Generate seed data")
	flag.BoolVar(&opts.export, "export", false, "Export the capacity reports of all resources and exit")
	flag.BoolVar(&opts.serve, "serve", false, "Serve the HTTP API instead of the terminal UI")
	flag.StringVar(&opts.inspect, "inspect", "", "Log the timeline of a resource and exit")
	flag.BoolVar(&opts.debugMode, "debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("capledger version %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		slog.Info("received shutdown signal", "signal", sig)
		cancel()

		// Force exit after timeout
		time.AfterFunc(10*time.Second, func() {
			slog.Error("forced shutdown after timeout")
			os.Exit(1)
		})
	}()

	if err := run(ctx, opts); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, cfgPath, err := config.Load(opts.configPath, true)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	closeLog, err := setupLogging(cfg, opts.debugMode || opts.inspect != "")
	if err != nil {
		return err
	}
	defer closeLog()

	slog.Info("capledger starting",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cfgPath,
	)

	dbPath, err := config.EnsureDataDir(cfg)
	if err != nil {
		return fmt.Errorf("ensuring data directory: %w", err)
	}

	backupDir, err := config.BackupDir(cfg)
	if err != nil {
		slog.Warn("failed to create backup directory", "error", err)
		backupDir = ""
	}

	report, err := database.Recover(dbPath, backupDir)
	if err != nil {
		slog.Error("database recovery failed", "path", dbPath, "problem", report.Problem)
		return fmt.Errorf("database recovery failed: %w", err)
	}
	if report.Result == database.RecoveryFromBackup {
		slog.Warn("database restored from backup",
			"backup", report.BackupUsed,
			"preserved", report.Preserved,
		)
	}

	db, err := database.Open(dbPath, cfg.Database, backupDir)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		slog.Info("closing database")
		if err := db.Close(); err != nil {
			slog.Error("error closing database", "error", err)
		}
	}()

	migrator, err := database.NewMigrator(db)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	result, err := migrator.MigrateUp(ctx)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	if len(result.Applied) > 0 {
		slog.Info("applied migrations",
			"count", len(result.Applied),
			"to_version", result.TargetVersion,
		)
	}

	if opts.migrateOnly {
		slog.Info("migrations complete, exiting")
		return nil
	}

	if opts.seedData {
		return seedDatabase(ctx, db, cfg)
	}

	svc := capacity.NewService(db, cfg)
	if err := svc.LoadModel(ctx); err != nil {
		return err
	}

	switch {
	case opts.inspect != "":
		return svc.Inspect(ctx, opts.inspect)

	case opts.export:
		req, err := svc.DefaultRequest()
		if err != nil {
			return err
		}
		res, err := svc.ExportPlans(ctx, req)
		if err != nil {
			return fmt.Errorf("exporting reports: %w", err)
		}
		fmt.Printf("exported %d rows for %d resources\n", res.Rows, res.Resources)
		return nil

	case opts.serve:
		slog.Info("starting HTTP API", "addr", cfg.Server.ListenAddr)
		return httpserver.New(cfg, db, svc).ListenAndServe(ctx)
	}

	tui.Version = Version
	tui.BuildTime = BuildTime

	slog.Info("starting TUI", "database", db.Path())
	if err := tui.Run(ctx, db, cfg, svc); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	slog.Info("capledger shutdown complete")
	return nil
}

func seedDatabase(ctx context.Context, db *database.DB, cfg *config.Config) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM resources").Scan(&count); err == nil && count > 0 {
		slog.Warn("database already contains resources, skipping seed generation", "count", count)
		return nil
	}

	start, err := cfg.Planning.CurrentDateTime()
	if err != nil {
		return fmt.Errorf("planning current date: %w", err)
	}

	slog.Info("generating seed data", "start", start)
	if err := seed.NewGenerator(db.DB, seed.DefaultConfig(start)).Generate(ctx); err != nil {
		return fmt.Errorf("generating seed data: %w", err)
	}
	slog.Info("seed data generation complete")
	return nil
}
