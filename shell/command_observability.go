package shell

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// CommandHandlerDurationMetric tracks command handler execution duration.
	CommandHandlerDurationMetric = "commandhandler_handle_duration_seconds"
	// CommandHandlerCallsMetric tracks total command handler calls.
	CommandHandlerCallsMetric = "commandhandler_handle_calls_total"

	// StatusSuccess indicates successful command completion.
	StatusSuccess = "success"
	// StatusRejected indicates that a business rule rejected the command.
	StatusRejected = "rejected"
	// StatusError indicates command processing error.
	StatusError = "error"
	// StatusCanceled indicates that the caller canceled the command.
	StatusCanceled = "canceled"
	// StatusTimeout indicates that the command ran out of time.
	StatusTimeout = "timeout"

	// LogMsgCommandStarted is logged when command processing begins.
	LogMsgCommandStarted = "command handler started"
	// LogMsgCommandCompleted is logged when command processing succeeds.
	LogMsgCommandCompleted = "command handler completed"
	// LogMsgCommandRejected is logged when a business rule rejects the command.
	LogMsgCommandRejected = "command handler rejected command"
	// LogMsgCommandFailed is logged when command processing fails.
	LogMsgCommandFailed = "command handler failed"

	// LogAttrCommandType identifies the command type in logs.
	LogAttrCommandType = "command_type"
	// LogAttrStatus indicates the command processing status.
	LogAttrStatus = "status"
	// LogAttrDurationMS indicates the processing duration in milliseconds.
	LogAttrDurationMS = "duration_ms"
	// LogAttrError contains error details.
	LogAttrError = "error"

	// SpanNameCommandHandle is the tracing span name for command handling.
	SpanNameCommandHandle = "commandhandler.handle"
)

// Command is implemented by every command of the lending workflow.
type Command interface {
	CommandType() string
}

// CoreCommandHandler processes one command type with pure business orchestration.
type CoreCommandHandler[C Command, R any] interface {
	Handle(ctx context.Context, command C) (R, error)
}

// IsCancellationError reports whether err stems from a canceled context.
func IsCancellationError(err error) bool {
	return errors.Is(err, context.Canceled)
}

// IsTimeoutError reports whether err stems from an exceeded deadline.
func IsTimeoutError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// BuildCommandLabels creates standard metric labels for command handler operations.
func BuildCommandLabels(commandType, status string) map[string]string {
	return map[string]string{
		LogAttrCommandType: commandType,
		LogAttrStatus:      status,
	}
}

// ToMilliseconds converts a time.Duration to float64 milliseconds.
func ToMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

// RecordCommandMetrics records the duration and the call counter of a command.
// It handles both context-aware and basic metrics collectors.
func RecordCommandMetrics(
	ctx context.Context,
	collector MetricsCollector,
	commandType string,
	status string,
	duration time.Duration,
) {
	if collector == nil {
		return
	}

	labels := BuildCommandLabels(commandType, status)

	if contextualCollector, ok := collector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, CommandHandlerDurationMetric, duration, labels)
		contextualCollector.IncrementCounterContext(ctx, CommandHandlerCallsMetric, labels)
		return
	}

	collector.RecordDuration(CommandHandlerDurationMetric, duration, labels)
	collector.IncrementCounter(CommandHandlerCallsMetric, labels)
}

// StartCommandSpan starts a span for a command.
// Returns the original context and nil if tracing is disabled.
func StartCommandSpan(
	ctx context.Context,
	tracingCollector TracingCollector,
	commandType string,
) (context.Context, SpanContext) {
	if tracingCollector == nil {
		return ctx, nil
	}

	return tracingCollector.StartSpan(ctx, SpanNameCommandHandle, map[string]string{
		LogAttrCommandType: commandType,
	})
}

// FinishCommandSpan completes a span with the command outcome.
func FinishCommandSpan(
	tracingCollector TracingCollector,
	span SpanContext,
	status string,
	duration time.Duration,
	err error,
) {
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

// LogCommand logs a command lifecycle message. Failures go to the error level, everything else to info.
func LogCommand(
	ctx context.Context,
	logger Logger,
	contextualLogger ContextualLogger,
	message string,
	args ...any,
) {
	if message == LogMsgCommandFailed {
		if contextualLogger != nil {
			contextualLogger.ErrorContext(ctx, message, args...)
		} else if logger != nil {
			logger.Error(message, args...)
		}

		return
	}

	if contextualLogger != nil {
		contextualLogger.InfoContext(ctx, message, args...)
	} else if logger != nil {
		logger.Info(message, args...)
	}
}
