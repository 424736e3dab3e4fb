package sqlengine

import (
	"github.com/AntonStoeckl/library-lending/inventory"
	"github.com/AntonStoeckl/library-lending/shell"
)

// Option defines a functional option for configuring the Ledger.
type Option func(*Ledger) error

// WithTableName sets the books table name.
func WithTableName(tableName string) Option {
	return func(l *Ledger) error {
		if tableName == "" {
			return inventory.ErrEmptyTableName
		}

		l.tableName = tableName

		return nil
	}
}

// WithDialect selects the SQL dialect used to build statements: DialectPostgres or DialectSQLite.
func WithDialect(dialect string) Option {
	return func(l *Ledger) error {
		switch dialect {
		case DialectPostgres, DialectSQLite:
			l.dialect = dialect
			return nil
		default:
			return inventory.ErrUnsupportedDialect
		}
	}
}

// WithLogger sets the logger for the Ledger.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: stock mutations, catalog writes, rejected conditional updates (production-safe)
// Warn level: non-critical issues like cleanup failures
// Error level: failures that cause an operation to fail.
func WithLogger(logger inventory.Logger) Option {
	return func(l *Ledger) error {
		l.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger. It takes precedence over WithLogger
// for operational messages so that log records carry trace correlation.
func WithContextualLogger(logger inventory.ContextualLogger) Option {
	return func(l *Ledger) error {
		l.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Ledger.
func WithMetrics(collector inventory.MetricsCollector) Option {
	return func(l *Ledger) error {
		l.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Ledger.
func WithTracing(collector inventory.TracingCollector) Option {
	return func(l *Ledger) error {
		l.tracingCollector = collector
		return nil
	}
}

// WithClock overrides the time source used for created/updated timestamps.
func WithClock(clock shell.Clock) Option {
	return func(l *Ledger) error {
		if clock != nil {
			l.clock = clock
		}

		return nil
	}
}
