package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/B0TMirage/cryptopulse/pkg/database"
)

func TestMigrateUPSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := database.Connect(ctx, database.SQLite, filepath.Join(t.TempDir(), "pulse.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, database.MigrateUP(ctx, db, database.SQLite))
	// running twice must not fail
	require.NoError(t, database.MigrateUP(ctx, db, database.SQLite))

	for _, table := range []string{"users", "watchlists"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
}

func TestConnectUnsupportedDialect(t *testing.T) {
	_, err := database.Connect(context.Background(), database.Dialect("oracle"), "")
	assert.Error(t, err)
}
