package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/B0TMirage/cryptopulse/pkg/database"
)

type Dependencies struct {
	SQL     *sql.DB
	Dialect database.Dialect
	Mongo   *mongo.Client
	MongoDB *mongo.Database
	Redis   *redis.Client
	Logger  *slog.Logger
}

type Option func(context.Context, *Dependencies) error

const closeTimeout = 5 * time.Second

func (d *Dependencies) Close() {
	if d == nil {
		return
	}

	if d.SQL != nil {
		d.SQL.Close()
	}
	if d.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		d.Mongo.Disconnect(ctx)
	}
	if d.Redis != nil {
		d.Redis.Close()
	}
}

// Checks returns a ping per opened backend, keyed by backend name.
func (d *Dependencies) Checks() map[string]func(context.Context) error {
	checks := make(map[string]func(context.Context) error)
	if d.SQL != nil {
		checks[string(d.Dialect)] = d.SQL.PingContext
	}
	if d.Mongo != nil {
		checks["mongo"] = func(ctx context.Context) error { return d.Mongo.Ping(ctx, nil) }
	}
	if d.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return d.Redis.Ping(ctx).Err() }
	}
	return checks
}

// NewDependencies applies opts in order. If one fails, everything opened
// so far is closed.
func NewDependencies(ctx context.Context, opts ...Option) (*Dependencies, error) {
	deps := &Dependencies{Logger: slog.Default()}

	for _, opt := range opts {
		if err := opt(ctx, deps); err != nil {
			deps.Close()
			return nil, err
		}
	}

	return deps, nil
}

func WithPostgres(url string) Option {
	return func(ctx context.Context, d *Dependencies) error {
		if d.SQL != nil {
			return errors.New("a sql database is already configured")
		}
		db, err := database.Connect(ctx, database.Postgres, url)
		if err != nil {
			return err
		}

		d.SQL = db
		d.Dialect = database.Postgres
		return nil
	}
}

func WithSQLite(path string) Option {
	return func(ctx context.Context, d *Dependencies) error {
		if d.SQL != nil {
			return errors.New("a sql database is already configured")
		}
		db, err := database.Connect(ctx, database.SQLite, path)
		if err != nil {
			return err
		}

		d.SQL = db
		d.Dialect = database.SQLite
		return nil
	}
}

func WithMongo(uri, dbName string) Option {
	return func(ctx context.Context, d *Dependencies) error {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}

		if err := client.Ping(ctx, nil); err != nil {
			client.Disconnect(ctx)
			return fmt.Errorf("ping mongo: %w", err)
		}

		d.Mongo = client
		d.MongoDB = client.Database(dbName)
		return nil
	}
}

func WithRedis(addr string, db int) Option {
	return func(ctx context.Context, d *Dependencies) error {
		client := redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		})

		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return fmt.Errorf("ping redis: %w", err)
		}

		d.Redis = client
		return nil
	}
}

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// WithLogger installs a text debug logger for dev and a JSON info logger
// for prod, and makes it the default.
func WithLogger(level string) Option {
	return func(_ context.Context, d *Dependencies) error {
		var handler slog.Handler

		switch level {
		case EnvDev:
			handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
		case EnvProd:
			handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
		default:
			return fmt.Errorf("unknown log level %q", level)
		}

		logger := slog.New(handler)
		slog.SetDefault(logger)
		d.Logger = logger
		return nil
	}
}
