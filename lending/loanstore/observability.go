package loanstore

import (
	"context"
	"time"

	"github.com/AntonStoeckl/library-lending/shell"
)

const (
	operationCreate           = "create"
	operationGet              = "get"
	operationExists           = "exists"
	operationCountOutstanding = "count_outstanding"
	operationHasOutstanding   = "has_outstanding"
	operationMarkReturned     = "mark_returned"
	operationRenew            = "renew"
	operationMarkOverdue      = "mark_overdue"
	operationUpdateBookTitle  = "update_book_title"
	operationCountLoans       = "count_loans"
	operationListLoans        = "list_loans"
	operationStatistics       = "statistics"

	logMsgOperation          = "loan store operation: "
	logMsgSQLExecuted        = "executed sql for: "
	logMsgLoanCreated        = "loan created"
	logMsgLoanReturned       = "loan returned"
	logMsgLoanRenewed        = "loan renewed"
	logMsgLoansMarkedOverdue = "loans marked overdue"
	logMsgBookTitleUpdated   = "book title updated"
	logMsgUpdateRejected     = "conditional update rejected"
	logMsgBuildQueryFailed   = "failed to build query"
	logMsgDBFailed           = "database statement failed"
	logMsgRowsAffectedFailed = "failed to get rows affected count"

	logAttrError      = "error"
	logAttrQuery      = "query"
	logAttrOperation  = "operation"
	logAttrLoanID     = "loan_id"
	logAttrUserID     = "user_id"
	logAttrBookID     = "book_id"
	logAttrQuantity   = "quantity"
	logAttrRenewCount = "renew_count"
	logAttrDueTime    = "due_time"
	logAttrCount      = "count"
	logAttrReason     = "reason"
	logAttrDurationMS = "duration_ms"

	metricQueryDuration  = "loanstore_query_duration_seconds"
	metricDatabaseErrors = "loanstore_database_errors_total"

	labelOperation = "operation"
	labelStatus    = "status"

	statusSuccess = "success"
	statusError   = "error"
)

// observeQuery logs the statement at debug level and records its duration, plus an error log and counter on failure.
func (s *Store) observeQuery(ctx context.Context, operation string, sqlQuery string, duration time.Duration, err error) {
	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+operation, logAttrDurationMS, shell.ToMilliseconds(duration), logAttrQuery, sqlQuery)
	}

	status := statusSuccess
	if err != nil {
		status = statusError
		s.logError(ctx, logMsgDBFailed, err, logAttrOperation, operation, logAttrQuery, sqlQuery)

		if s.metricsCollector != nil {
			s.metricsCollector.IncrementCounter(metricDatabaseErrors, map[string]string{labelOperation: operation})
		}
	}

	if s.metricsCollector != nil {
		s.metricsCollector.RecordDuration(metricQueryDuration, duration, map[string]string{
			labelOperation: operation,
			labelStatus:    status,
		})
	}
}

func (s *Store) logOperation(ctx context.Context, action string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
		return
	}

	if s.logger != nil {
		s.logger.Info(logMsgOperation+action, args...)
	}
}

func (s *Store) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, message, allArgs...)
		return
	}

	if s.logger != nil {
		s.logger.Error(message, allArgs...)
	}
}
