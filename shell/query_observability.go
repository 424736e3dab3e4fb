package shell

import (
	"context"
	"fmt"
	"time"
)

const (
	QueryHandlerDurationMetric = "queryhandler_handle_duration_seconds"
	QueryHandlerCallsMetric    = "queryhandler_handle_calls_total"

	LogMsgQueryStarted   = "query handler started"
	LogMsgQueryCompleted = "query handler completed"
	LogMsgQueryRejected  = "query handler rejected query"
	LogMsgQueryFailed    = "query handler failed"

	LogAttrQueryType = "query_type"

	SpanNameQueryHandle = "queryhandler.handle"
)

// Query is implemented by every read model request.
type Query interface {
	QueryType() string
}

// CoreQueryHandler answers one query type without any instrumentation.
type CoreQueryHandler[Q Query, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}

// BuildQueryLabels creates standard metric labels for query handler operations.
func BuildQueryLabels(queryType, status string) map[string]string {
	return map[string]string{
		LogAttrQueryType: queryType,
		LogAttrStatus:    status,
	}
}

// RecordQueryMetrics records the duration and the call counter of a query.
func RecordQueryMetrics(
	ctx context.Context,
	collector MetricsCollector,
	queryType string,
	status string,
	duration time.Duration,
) {
	if collector == nil {
		return
	}

	labels := BuildQueryLabels(queryType, status)

	if contextualCollector, ok := collector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, QueryHandlerDurationMetric, duration, labels)
		contextualCollector.IncrementCounterContext(ctx, QueryHandlerCallsMetric, labels)
		return
	}

	collector.RecordDuration(QueryHandlerDurationMetric, duration, labels)
	collector.IncrementCounter(QueryHandlerCallsMetric, labels)
}

// StartQuerySpan starts a span for a query.
// Returns the original context and nil if tracing is disabled.
func StartQuerySpan(ctx context.Context, tracingCollector TracingCollector, queryType string) (context.Context, SpanContext) {
	if tracingCollector == nil {
		return ctx, nil
	}

	return tracingCollector.StartSpan(ctx, SpanNameQueryHandle, map[string]string{
		LogAttrQueryType: queryType,
	})
}

// FinishQuerySpan completes a span with the query outcome.
func FinishQuerySpan(tracingCollector TracingCollector, span SpanContext, status string, duration time.Duration, err error) {
	if tracingCollector == nil || span == nil {
		return
	}

	attrs := map[string]string{
		LogAttrStatus:     status,
		LogAttrDurationMS: fmt.Sprintf("%.2f", ToMilliseconds(duration)),
	}

	if err != nil {
		attrs[LogAttrError] = err.Error()
	}

	tracingCollector.FinishSpan(span, status, attrs)
}

// LogQuery logs a query lifecycle message. Successful queries are logged at debug level
// because reads are frequent; failures at error level, rejections at info.
func LogQuery(ctx context.Context, logger Logger, contextualLogger ContextualLogger, message string, args ...any) {
	switch message {
	case LogMsgQueryFailed:
		if contextualLogger != nil {
			contextualLogger.ErrorContext(ctx, message, args...)
		} else if logger != nil {
			logger.Error(message, args...)
		}
	case LogMsgQueryRejected:
		if contextualLogger != nil {
			contextualLogger.InfoContext(ctx, message, args...)
		} else if logger != nil {
			logger.Info(message, args...)
		}
	default:
		if contextualLogger != nil {
			contextualLogger.DebugContext(ctx, message, args...)
		} else if logger != nil {
			logger.Debug(message, args...)
		}
	}
}
