package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/B0TMirage/cryptopulse/pkg/config"
	"github.com/B0TMirage/cryptopulse/pkg/dashboard"
	"github.com/B0TMirage/cryptopulse/pkg/database"
	"github.com/B0TMirage/cryptopulse/pkg/handlers"
	"github.com/B0TMirage/cryptopulse/pkg/pricefeed"
	"github.com/B0TMirage/cryptopulse/pkg/reconciler"
	"github.com/B0TMirage/cryptopulse/pkg/routes"
	"github.com/B0TMirage/cryptopulse/pkg/users"
	"github.com/B0TMirage/cryptopulse/pkg/watchlist"
)

// dependencyOptions turns the config into the connections to open.
func dependencyOptions(cfg *config.Config) []config.Option {
	opts := []config.Option{config.WithLogger(cfg.Server.LogLvl)}

	switch cfg.Storage.Kind {
	case config.StoragePostgres:
		opts = append(opts, config.WithPostgres(cfg.Storage.PostgresURL))
	case config.StorageSQLite:
		opts = append(opts, config.WithSQLite(cfg.Storage.SQLitePath))
	}
	if cfg.Storage.Watchlists == config.BackendMongo {
		opts = append(opts, config.WithMongo(cfg.Storage.MongoURI, cfg.Storage.MongoDB))
	}
	if cfg.Redis.Addr != "" {
		opts = append(opts, config.WithRedis(cfg.Redis.Addr, cfg.Redis.DB))
	}
	return opts
}

// migrate prepares every opened backend. It is safe to run repeatedly.
func migrate(ctx context.Context, deps *config.Dependencies) error {
	if deps.SQL != nil {
		if err := database.MigrateUP(ctx, deps.SQL, deps.Dialect); err != nil {
			return err
		}
		deps.Logger.Info("sql schema is up to date", slog.String("dialect", string(deps.Dialect)))
	}
	if deps.MongoDB != nil {
		if err := watchlist.NewMongoStore(deps.MongoDB, deps.Logger).EnsureIndexes(ctx); err != nil {
			return err
		}
		deps.Logger.Info("mongo indexes are up to date")
	}
	return nil
}

func watchlistStore(cfg *config.Config, deps *config.Dependencies) (watchlist.Store, error) {
	if cfg.Storage.Watchlists == config.BackendMongo {
		return watchlist.NewMongoStore(deps.MongoDB, deps.Logger), nil
	}
	switch deps.Dialect {
	case database.Postgres:
		return watchlist.NewPostgresStore(deps.SQL, deps.Logger), nil
	case database.SQLite:
		return watchlist.NewSQLiteStore(deps.SQL, deps.Logger), nil
	case "":
		return watchlist.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("no watchlist store for dialect %q", deps.Dialect)
}

func userStore(deps *config.Dependencies) users.Store {
	if deps.SQL == nil {
		return users.NewMemoryStore()
	}
	return users.NewSQLStore(deps.SQL, deps.Dialect, deps.Logger)
}

// buildHandler wires stores, the feed and the HTTP surface together.
func buildHandler(cfg *config.Config, deps *config.Dependencies) (http.Handler, error) {
	logger := deps.Logger

	store, err := watchlistStore(cfg, deps)
	if err != nil {
		return nil, err
	}

	var cache pricefeed.SnapshotCache = pricefeed.NewMemoryCache()
	if deps.Redis != nil {
		cache = pricefeed.NewRedisCache(deps.Redis, cfg.Redis.SnapshotTTL, logger)
	}

	feed := pricefeed.WriteThrough(pricefeed.NewClient(pricefeed.Options{
		BaseURL:       cfg.Feed.URL,
		VsCurrency:    cfg.Feed.VsCurrency,
		Timeout:       cfg.Feed.Timeout,
		RatePerMinute: cfg.Feed.RatePerMinute,
		Logger:        logger,
	}), cache, logger)

	recon := reconciler.New(store, feed, reconciler.Options{
		Cache:        cache,
		Logger:       logger,
		WriteTimeout: cfg.WriteTimeout,
	})

	checks := make(map[string]handlers.HealthCheck)
	for name, check := range deps.Checks() {
		checks[name] = check
	}

	h := handlers.New(
		users.NewService(userStore(deps), cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger),
		recon,
		dashboard.NewBuilder(feed, cache, recon, logger),
		checks,
		logger,
	)

	return routes.SetupRoutes(http.NewServeMux(), h, cfg.Auth.JWTSecret, logger), nil
}
