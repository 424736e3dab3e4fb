// Package lendingtest wires a ledger and a loan store onto one SQLite database for workflow tests.
package lendingtest

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending/inventory/sqlengine"
	"github.com/AntonStoeckl/library-lending/lending/loanstore"
	"github.com/AntonStoeckl/library-lending/shell"
	"github.com/AntonStoeckl/library-lending/testutil/sqlitetest"
)

// Environment holds the stores of one test database.
type Environment struct {
	DB     *sqlx.DB
	Ledger *sqlengine.Ledger
	Loans  *loanstore.Store
}

// NewEnvironment opens a fresh database. Both stores stamp rows with clock.
func NewEnvironment(t testing.TB, clock shell.Clock) Environment {
	t.Helper()

	db := sqlitetest.OpenDB(t)

	ledger, err := sqlengine.NewLedgerFromSQLX(db, sqlengine.WithClock(clock))
	require.NoError(t, err, "creating the ledger failed")

	loans, err := loanstore.NewStore(db, loanstore.WithClock(clock))
	require.NoError(t, err, "creating the loan store failed")

	return Environment{DB: db, Ledger: ledger, Loans: loans}
}
