package sqlitetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/AntonStoeckl/library-lending/schema"
)

// DriverName is the database/sql name of the modernc SQLite driver.
const DriverName = "sqlite"

// DSN builds the connection string used for SQLite in tests and single-node runs.
// Writers wait on a busy database instead of failing, and times are written in SQLite's own format.
func DSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_time_format=sqlite"
}

// OpenDB opens a fresh database in the test's temp dir and applies the schema.
// The database is closed when the test ends.
func OpenDB(t testing.TB) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open(DriverName, DSN(filepath.Join(t.TempDir(), "library.db")))
	require.NoError(t, err, "error in arranging test database")

	// SQLite has a single writer; one connection serializes statements instead of returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	require.NoError(t, schema.Apply(context.Background(), db), "error in applying schema")

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}
