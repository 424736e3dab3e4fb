package sqlengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/AntonStoeckl/library-lending/inventory"
)

const (
	operationCheckAvailable = "check_available"
	operationReserve        = "reserve"
	operationRelease        = "release"
	operationAddStock       = "add_stock"
	operationReduceStock    = "reduce_stock"
	operationReadStock      = "read_stock"
	operationExists         = "exists"
	operationCreateBook     = "create_book"
	operationGetBook        = "get_book"
	operationListBooks      = "list_books"
	operationCountBooks     = "count_books"
	operationUpdateBook     = "update_book"
	operationSetStatus      = "set_status"
	operationDeleteBook     = "delete_book"

	logMsgOperation              = "ledger operation: "
	logMsgSQLExecuted            = "executed sql for: "
	logMsgStockMutated           = "stock mutated"
	logMsgMutationRejected       = "conditional update rejected"
	logMsgBookCreated            = "book created"
	logMsgBookUpdated            = "book updated"
	logMsgBookStatusChanged      = "book status changed"
	logMsgBookDeleted            = "book deleted"
	logMsgBuildSelectQueryFailed = "failed to build select query"
	logMsgBuildUpdateQueryFailed = "failed to build update query"
	logMsgBuildInsertQueryFailed = "failed to build insert query"
	logMsgDBQueryFailed          = "database query execution failed"
	logMsgDBExecFailed           = "database execution failed"
	logMsgRowsAffectedFailed     = "failed to get rows affected count"
	logMsgScanRowFailed          = "failed to scan database row"
	logMsgCloseRowsFailed        = "failed to close database rows"

	logAttrError          = "error"
	logAttrQuery          = "query"
	logAttrOperation      = "operation"
	logAttrBookID         = "book_id"
	logAttrISBN           = "isbn"
	logAttrTitle          = "title"
	logAttrStatus         = "status"
	logAttrQuantity       = "quantity"
	logAttrReason         = "reason"
	logAttrTotalStock     = "total_stock"
	logAttrAvailableStock = "available_stock"
	logAttrDurationMS     = "duration_ms"

	metricStockMutationDuration = "ledger_stock_mutation_duration_seconds"
	metricQueryDuration         = "ledger_query_duration_seconds"
	metricDatabaseErrors        = "ledger_database_errors_total"
	metricRejectedMutations     = "ledger_rejected_mutations_total"

	spanNameStockMutation = "ledger.stock."
	spanAttrOperation     = "operation"
	spanAttrBookID        = "book.id"
	spanAttrQuantity      = "quantity"
	spanAttrErrorType     = "error_type"
	spanAttrDurationMS    = "duration_ms"
	spanAttrAvailable     = "stock.available"
	spanAttrTotal         = "stock.total"

	statusSuccess  = "success"
	statusError    = "error"
	statusConflict = "conflict"

	errorTypeDatabase     = "database_error"
	errorTypeInsufficient = "insufficient_stock"
	errorTypeOverRelease  = "over_release"
	errorTypeStockLimit   = "stock_limit"
	errorTypeNotFound     = "not_found"
)

// logQueryWithDuration logs SQL statements with execution time at debug level if the logger is configured.
func (l *Ledger) logQueryWithDuration(sqlQuery string, operation string, duration time.Duration) {
	if l.logger != nil {
		l.logger.Debug(logMsgSQLExecuted+operation, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level.
// The contextual logger wins over the plain one so that records carry trace correlation.
func (l *Ledger) logOperation(ctx context.Context, action string, args ...any) {
	if l.contextualLogger != nil {
		l.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
		return
	}

	if l.logger != nil {
		l.logger.Info(logMsgOperation+action, args...)
	}
}

func (l *Ledger) logWarn(ctx context.Context, message string, args ...any) {
	if l.contextualLogger != nil {
		l.contextualLogger.WarnContext(ctx, message, args...)
		return
	}

	if l.logger != nil {
		l.logger.Warn(message, args...)
	}
}

// logError logs error information at the error level if a logger is configured.
func (l *Ledger) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if l.contextualLogger != nil {
		l.contextualLogger.ErrorContext(ctx, message, allArgs...)
		return
	}

	if l.logger != nil {
		l.logger.Error(message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordErrorMetrics records database errors if the metrics collector is configured.
func (l *Ledger) recordErrorMetrics(ctx context.Context, operation, errorType string) {
	if l.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		"status":          statusError,
		spanAttrErrorType: errorType,
	}

	if contextualCollector, ok := l.metricsCollector.(inventory.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricDatabaseErrors, labels)
	} else {
		l.metricsCollector.IncrementCounter(metricDatabaseErrors, labels)
	}
}

// recordDurationMetrics records a duration with context if the collector supports it.
func (l *Ledger) recordDurationMetrics(
	ctx context.Context,
	metricName string,
	duration time.Duration,
	operation, status string,
) {
	if l.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		"status":          status,
	}

	if contextualCollector, ok := l.metricsCollector.(inventory.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricName, duration, labels)
	} else {
		l.metricsCollector.RecordDuration(metricName, duration, labels)
	}
}

// recordRejection counts conditional updates that affected zero rows.
func (l *Ledger) recordRejection(ctx context.Context, operation string, rejection error) {
	if l.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		"status":          statusConflict,
		spanAttrErrorType: rejectionType(rejection),
	}

	if contextualCollector, ok := l.metricsCollector.(inventory.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricRejectedMutations, labels)
	} else {
		l.metricsCollector.IncrementCounter(metricRejectedMutations, labels)
	}
}

func rejectionType(rejection error) string {
	switch {
	case errors.Is(rejection, inventory.ErrInsufficientStock):
		return errorTypeInsufficient
	case errors.Is(rejection, inventory.ErrOverRelease):
		return errorTypeOverRelease
	case errors.Is(rejection, inventory.ErrStockLimitExceeded):
		return errorTypeStockLimit
	case errors.Is(rejection, inventory.ErrBookNotFound):
		return errorTypeNotFound
	default:
		return errorTypeDatabase
	}
}

// startMutationSpan starts a tracing span for a stock mutation if the tracing collector is configured.
func (l *Ledger) startMutationSpan(
	ctx context.Context,
	operation string,
	bookID string,
	quantity int,
) (context.Context, inventory.SpanContext) {

	if l.tracingCollector == nil {
		return ctx, nil
	}

	return l.tracingCollector.StartSpan(ctx, spanNameStockMutation+operation, map[string]string{
		spanAttrOperation: operation,
		spanAttrBookID:    bookID,
		spanAttrQuantity:  fmt.Sprintf("%d", quantity),
	})
}

func (l *Ledger) finishMutationSpanSuccess(span inventory.SpanContext, stock inventory.Stock, duration time.Duration) {
	if l.tracingCollector == nil || span == nil {
		return
	}

	l.tracingCollector.FinishSpan(span, statusSuccess, map[string]string{
		spanAttrTotal:      fmt.Sprintf("%d", stock.Total),
		spanAttrAvailable:  fmt.Sprintf("%d", stock.Available),
		spanAttrDurationMS: fmt.Sprintf("%.2f", float64(duration.Nanoseconds())/1e6),
	})
}

func (l *Ledger) finishMutationSpanRejected(span inventory.SpanContext, operation string, duration time.Duration) {
	if l.tracingCollector == nil || span == nil {
		return
	}

	l.tracingCollector.FinishSpan(span, statusConflict, map[string]string{
		spanAttrOperation:  operation,
		spanAttrDurationMS: fmt.Sprintf("%.2f", float64(duration.Nanoseconds())/1e6),
	})
}

func (l *Ledger) finishMutationSpanError(
	ctx context.Context,
	span inventory.SpanContext,
	operation string,
	errorType string,
	duration time.Duration,
) {
	l.recordDurationMetrics(ctx, metricStockMutationDuration, duration, operation, statusError)

	if l.tracingCollector == nil || span == nil {
		return
	}

	l.tracingCollector.FinishSpan(span, statusError, map[string]string{
		spanAttrErrorType:  errorType,
		spanAttrDurationMS: fmt.Sprintf("%.2f", float64(duration.Nanoseconds())/1e6),
	})
}
