// Package dbtest provides migrated in-memory databases for tests.
package dbtest

import (
	"testing"

	"github.com/booklog/booklog/internal/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
)

// New opens a fresh in-memory SQLite database with all migrations applied.
// The pool is pinned to one connection because every new SQLite connection
// to ":memory:" would see its own empty database.
func New(t testing.TB) *db.DB {
	t.Helper()

	database, err := db.Open(sqlite.Open(":memory:"), zap.NewNop())
	require.NoError(t, err)

	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.RunMigrations(database))

	t.Cleanup(func() {
		_ = database.Close()
	})
	return database
}
