package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/lib/pq"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Connect opens a pool for the dialect and checks it with a ping.
func Connect(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	switch dialect {
	case Postgres:
		db.SetMaxOpenConns(100)
		db.SetMaxIdleConns(50)
		db.SetConnMaxLifetime(0)
	case SQLite:
		// single writer; WAL lets readers proceed meanwhile
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL;",
			"PRAGMA synchronous=NORMAL;",
			"PRAGMA foreign_keys=ON;",
		} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("set pragma %s: %w", pragma, err)
			}
		}
	default:
		db.Close()
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	return db, nil
}
