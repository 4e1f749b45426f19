package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/B0TMirage/cryptopulse/pkg/pricefeed"
	"github.com/B0TMirage/cryptopulse/pkg/reconciler"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"

	BackendSQL   = "sql"
	BackendMongo = "mongo"
)

type (
	ServerConfig struct {
		Port   string `yaml:"port"`
		Host   string `yaml:"host"`
		LogLvl string `yaml:"log_lvl"`
	}

	StorageConfig struct {
		// Kind selects where users live: memory, postgres or sqlite.
		Kind string `yaml:"kind"`
		// Watchlists is sql (same database as users) or mongo.
		Watchlists  string `yaml:"watchlists"`
		PostgresURL string `yaml:"postgres_url"`
		SQLitePath  string `yaml:"sqlite_path"`
		MongoURI    string `yaml:"mongo_uri"`
		MongoDB     string `yaml:"mongo_db"`
	}

	Redis struct {
		Addr        string        `yaml:"addr"`
		DB          int           `yaml:"db"`
		SnapshotTTL time.Duration `yaml:"snapshot_ttl"`
	}

	FeedConfig struct {
		URL           string        `yaml:"url"`
		VsCurrency    string        `yaml:"vs_currency"`
		Timeout       time.Duration `yaml:"timeout"`
		RatePerMinute int           `yaml:"rate_per_minute"`
	}

	AuthConfig struct {
		JWTSecret string        `yaml:"jwt_secret"`
		TokenTTL  time.Duration `yaml:"token_ttl"`
	}

	Config struct {
		Server       ServerConfig  `yaml:"server"`
		Storage      StorageConfig `yaml:"storage"`
		Redis        Redis         `yaml:"redis"`
		Feed         FeedConfig    `yaml:"feed"`
		Auth         AuthConfig    `yaml:"auth"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	}
)

func defaults() *Config {
	return &Config{
		Server:  ServerConfig{Port: "8080", Host: "0.0.0.0", LogLvl: EnvDev},
		Storage: StorageConfig{Kind: StorageMemory, Watchlists: BackendSQL, SQLitePath: "cryptopulse.db", MongoDB: "cryptopulse"},
		Redis:   Redis{SnapshotTTL: pricefeed.DefaultSnapshotTTL},
		Feed: FeedConfig{
			URL:           pricefeed.DefaultBaseURL,
			VsCurrency:    pricefeed.DefaultVsCurrency,
			Timeout:       pricefeed.DefaultTimeout,
			RatePerMinute: 30,
		},
		Auth:         AuthConfig{TokenTTL: 7 * 24 * time.Hour},
		WriteTimeout: reconciler.DefaultWriteTimeout,
	}
}

// Load builds the config from defaults, then the YAML file at path if path
// is not empty, then environment variables.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Host = getEnv("HOST", c.Server.Host)
	c.Server.LogLvl = getEnv("LOG_LVL", c.Server.LogLvl)

	c.Storage.Kind = getEnv("STORAGE", c.Storage.Kind)
	c.Storage.Watchlists = getEnv("WATCHLIST_BACKEND", c.Storage.Watchlists)
	c.Storage.PostgresURL = getEnv("POSTGRES_URL", c.Storage.PostgresURL)
	c.Storage.SQLitePath = getEnv("SQLITE_PATH", c.Storage.SQLitePath)
	c.Storage.MongoURI = getEnv("MONGO_URI", c.Storage.MongoURI)
	c.Storage.MongoDB = getEnv("MONGO_DB", c.Storage.MongoDB)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Feed.URL = getEnv("FEED_URL", c.Feed.URL)
	c.Feed.VsCurrency = getEnv("VS_CURRENCY", c.Feed.VsCurrency)

	// secret_token is the older name for the same secret
	c.Auth.JWTSecret = getEnv("JWT_SECRET", getEnv("secret_token", c.Auth.JWTSecret))

	var errs []error
	errs = append(errs,
		envInt("REDIS_DB", &c.Redis.DB),
		envInt("FEED_RATE_PER_MIN", &c.Feed.RatePerMinute),
		envDuration("SNAPSHOT_TTL", &c.Redis.SnapshotTTL),
		envDuration("FEED_TIMEOUT", &c.Feed.Timeout),
		envDuration("WRITE_TIMEOUT", &c.WriteTimeout),
		envDuration("TOKEN_TTL", &c.Auth.TokenTTL),
	)
	return errors.Join(errs...)
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Server.LogLvl {
	case EnvDev, EnvProd:
	default:
		errs = append(errs, fmt.Errorf("LOG_LVL must be %s or %s, got %q", EnvDev, EnvProd, c.Server.LogLvl))
	}

	switch c.Storage.Kind {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.PostgresURL == "" {
			errs = append(errs, errors.New("POSTGRES_URL is required for postgres storage"))
		}
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for sqlite storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE must be memory, postgres or sqlite, got %q", c.Storage.Kind))
	}

	switch c.Storage.Watchlists {
	case BackendSQL:
	case BackendMongo:
		if c.Storage.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo watchlist backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("WATCHLIST_BACKEND must be sql or mongo, got %q", c.Storage.Watchlists))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Feed.RatePerMinute < 0 {
		errs = append(errs, errors.New("FEED_RATE_PER_MIN must not be negative"))
	}
	for name, d := range map[string]time.Duration{
		"FEED_TIMEOUT":  c.Feed.Timeout,
		"WRITE_TIMEOUT": c.WriteTimeout,
		"TOKEN_TTL":     c.Auth.TokenTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}

	return defaultValue
}

func envInt(key string, dst *int) error {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
