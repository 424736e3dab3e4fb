// Package sqlengine implements the inventory ledger and catalog on a relational database.
//
// Every stock operation is one conditional UPDATE whose predicate encodes the invariant:
//
//	reserve:  available_stock = available_stock - q  WHERE available_stock >= q
//	release:  available_stock = available_stock + q  WHERE available_stock + q <= total_stock
//	add:      total_stock + q, available_stock + q
//	reduce:   total_stock - q, available_stock - q   WHERE available_stock >= q
//
// An UPDATE that affects zero rows is a rejected operation and is reported with a typed
// error from the inventory package. No application-level locks are taken; concurrent
// callers, even on different service instances, are serialized by the database row lock.
//
// Statements are built with goqu for either the Postgres or the SQLite dialect and executed
// through one of three adapters: pgxpool, database/sql, or sqlx.
//
//	ledger, err := sqlengine.NewLedgerFromPGXPool(pool, sqlengine.WithLogger(slog.Default()))
//	stock, err := ledger.Reserve(ctx, bookID, 1)
//	if errors.Is(err, inventory.ErrInsufficientStock) {
//		// another borrower won the race
//	}
package sqlengine
