package database

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = map[Dialect][]string{
	Postgres: {
		`CREATE TABLE IF NOT EXISTS users(
			id TEXT PRIMARY KEY,
			username VARCHAR(64) NOT NULL,
			email VARCHAR(254) UNIQUE NOT NULL,
			password VARCHAR(72) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS watchlists(
			user_id TEXT PRIMARY KEY,
			coins TEXT[] NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	},
	SQLite: {
		`CREATE TABLE IF NOT EXISTS users(
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS watchlists(
			user_id TEXT PRIMARY KEY,
			coins TEXT NOT NULL DEFAULT '[]',
			updated_at INTEGER NOT NULL
		);`,
	},
}

// MigrateUP creates the tables if they do not exist. It is safe to run on
// every start.
func MigrateUP(ctx context.Context, db *sql.DB, dialect Dialect) error {
	statements, ok := schema[dialect]
	if !ok {
		return fmt.Errorf("no schema for dialect %q", dialect)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
