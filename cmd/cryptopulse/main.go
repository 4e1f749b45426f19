package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/google/subcommands"

	"github.com/B0TMirage/cryptopulse/pkg/config"
)

const shutdownTimeout = 10 * time.Second

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&serveCmd{}, "")
	commander.Register(&migrateCmd{}, "")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(int(commander.Execute(ctx)))
}

// --- serveCmd ---

type serveCmd struct {
	configPath string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "runs the HTTP API" }
func (*serveCmd) Usage() string {
	return `serve [-config <file.yaml>]

Starts the API server. Settings come from the optional YAML file and are
overridden by environment variables. SQL schemas are migrated on start.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}

	deps, err := config.NewDependencies(ctx, dependencyOptions(cfg)...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer deps.Close()
	logger := deps.Logger

	if err := migrate(ctx, deps); err != nil {
		logger.Error("migration failed", slog.Any("error", err))
		return subcommands.ExitFailure
	}

	handler, err := buildHandler(cfg, deps)
	if err != nil {
		logger.Error("failed to build handler", slog.Any("error", err))
		return subcommands.ExitFailure
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", slog.String("addr", srv.Addr), slog.String("storage", cfg.Storage.Kind))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			return subcommands.ExitFailure
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			return subcommands.ExitFailure
		}
	}

	return subcommands.ExitSuccess
}

// --- migrateCmd ---

type migrateCmd struct {
	configPath string
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "creates tables and indexes" }
func (*migrateCmd) Usage() string {
	return `migrate [-config <file.yaml>]

Creates the users and watchlists tables for the configured SQL database and
the unique watchlist index for MongoDB. Safe to run more than once.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
}

func (c *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	if cfg.Storage.Kind == config.StorageMemory && cfg.Storage.Watchlists != config.BackendMongo {
		fmt.Fprintln(os.Stderr, "Nothing to migrate: storage is in memory.")
		return subcommands.ExitSuccess
	}

	deps, err := config.NewDependencies(ctx, dependencyOptions(cfg)...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer deps.Close()

	if err := migrate(ctx, deps); err != nil {
		deps.Logger.Error("migration failed", slog.Any("error", err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
