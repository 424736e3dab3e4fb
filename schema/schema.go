// Package schema holds the DDL of the books and borrow_records tables
// for PostgreSQL and SQLite and applies it to a database.
package schema

import (
	"context"
	_ "embed"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
)

//go:embed postgres.sql
var postgresDDL string

//go:embed sqlite.sql
var sqliteDDL string

var (
	// ErrUnknownDriver is returned for database/sql drivers without a bundled schema.
	ErrUnknownDriver = errors.New("no schema for database driver")

	// ErrApplyingSchemaFailed wraps failures of individual DDL statements.
	ErrApplyingSchemaFailed = errors.New("applying schema failed")
)

// Statements returns the DDL statements for the given database/sql driver name, in execution order.
func Statements(driverName string) ([]string, error) {
	var ddl string

	switch driverName {
	case "postgres", "pgx":
		ddl = postgresDDL
	case "sqlite", "sqlite3":
		ddl = sqliteDDL
	default:
		return nil, errors.Join(ErrUnknownDriver, errors.New(driverName))
	}

	statements := make([]string, 0)
	for _, statement := range strings.Split(ddl, ";") {
		if trimmed := strings.TrimSpace(statement); trimmed != "" {
			statements = append(statements, trimmed)
		}
	}

	return statements, nil
}

// Apply creates all tables and indexes that do not exist yet.
func Apply(ctx context.Context, db *sqlx.DB) error {
	statements, err := Statements(db.DriverName())
	if err != nil {
		return err
	}

	for _, statement := range statements {
		if _, execErr := db.ExecContext(ctx, statement); execErr != nil {
			return errors.Join(ErrApplyingSchemaFailed, execErr)
		}
	}

	return nil
}
