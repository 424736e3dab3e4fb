package inventory

import (
	"github.com/AntonStoeckl/library-lending/shell"
)

// Observability hooks of the ledger. They are the shared shell interfaces,
// so one set of adapters serves both services.

// Logger receives SQL statements at debug level and operations at info level.
type Logger = shell.Logger

// ContextualLogger takes precedence over Logger for operational messages.
type ContextualLogger = shell.ContextualLogger

// MetricsCollector receives durations, counters and values.
type MetricsCollector = shell.MetricsCollector

// ContextualMetricsCollector is used instead of MetricsCollector when the collector implements it.
type ContextualMetricsCollector = shell.ContextualMetricsCollector

// SpanContext is an active span.
type SpanContext = shell.SpanContext

// TracingCollector starts and finishes spans around stock mutations.
type TracingCollector = shell.TracingCollector
