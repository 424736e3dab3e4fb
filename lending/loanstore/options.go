package loanstore

import (
	"github.com/AntonStoeckl/library-lending/lending/core"
	"github.com/AntonStoeckl/library-lending/shell"
)

// Option defines a functional option for configuring the Store.
type Option func(*Store) error

// WithTableName sets the borrow records table name.
func WithTableName(tableName string) Option {
	return func(s *Store) error {
		if tableName == "" {
			return core.ErrEmptyTableName
		}

		s.tableName = tableName

		return nil
	}
}

// WithLogger sets the logger. SQL statements are logged at debug level, state transitions at info.
func WithLogger(logger shell.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger. It takes precedence over WithLogger
// for operational messages.
func WithContextualLogger(logger shell.ContextualLogger) Option {
	return func(s *Store) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(collector shell.MetricsCollector) Option {
	return func(s *Store) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithClock overrides the time source for created/updated timestamps and the overdue filter.
func WithClock(clock shell.Clock) Option {
	return func(s *Store) error {
		if clock != nil {
			s.clock = clock
		}

		return nil
	}
}
