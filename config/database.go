package config

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // registers the "postgres" database/sql driver
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// Supported database/sql driver names.
const (
	DriverPGX      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	defaultMaxOpenConns      = 50
	defaultMaxIdleConns      = 10
	defaultConnMaxLifetime   = time.Hour
	defaultConnMaxIdleTime   = 5 * time.Minute
	defaultMinPoolConns      = int32(2)
	defaultHealthCheckPeriod = time.Minute
	defaultConnectTimeout    = 5 * time.Second
)

// ErrDatabaseUnreachable wraps failures to open or ping the database.
var ErrDatabaseUnreachable = errors.New("database unreachable")

// Database describes the connection of one service.
type Database struct {
	Driver          string
	DSN             string
	UsePGXPool      bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ApplySchema     bool
}

// Valid reports whether the driver is supported.
func (d Database) Valid() bool {
	switch d.Driver {
	case DriverPGX, DriverPostgres, DriverSQLite:
		return true
	default:
		return false
	}
}

// PostgresPGXPoolConfig parses the DSN into a pool config with the service pool limits.
func PostgresPGXPoolConfig(d Database) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(d.DSN)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	poolConfig.MaxConns = int32(d.MaxOpenConns) //nolint:gosec // validated small positive number
	poolConfig.MinConns = defaultMinPoolConns
	poolConfig.MaxConnLifetime = d.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = defaultConnMaxIdleTime
	poolConfig.HealthCheckPeriod = defaultHealthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = defaultConnectTimeout

	return poolConfig, nil
}

// OpenPGXPool connects a pgx pool and pings it.
func OpenPGXPool(ctx context.Context, d Database) (*pgxpool.Pool, error) {
	poolConfig, err := PostgresPGXPoolConfig(d)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Join(ErrDatabaseUnreachable, err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Join(ErrDatabaseUnreachable, err)
	}

	return pool, nil
}

// OpenSQLX opens a database/sql pool for the configured driver and pings it.
// SQLite gets a single connection because it has a single writer.
func OpenSQLX(ctx context.Context, d Database) (*sqlx.DB, error) {
	if !d.Valid() {
		return nil, invalid("DB_DRIVER", "must be one of pgx, postgres or sqlite")
	}

	db, err := sqlx.Open(d.Driver, d.DSN)
	if err != nil {
		return nil, errors.Join(ErrDatabaseUnreachable, err)
	}

	if d.Driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(d.MaxOpenConns)
		db.SetMaxIdleConns(d.MaxIdleConns)
		db.SetConnMaxLifetime(d.ConnMaxLifetime)
		db.SetConnMaxIdleTime(defaultConnMaxIdleTime)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrDatabaseUnreachable, err)
	}

	return db, nil
}
