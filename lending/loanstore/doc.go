// Package loanstore persists borrow records in the borrow_records table.
//
// Statements are built with goqu as prepared statements for PostgreSQL or SQLite and executed
// through sqlx. State transitions are single conditional UPDATEs: a zero-row outcome is
// reported as a typed error from lending/core instead of being retried.
//
// The partial unique index borrow_records_active_loan_uidx keeps at most one outstanding,
// non-deleted record per (user, book); Create maps its violation to core.ErrDuplicateActiveLoan.
package loanstore
