package shell

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

const (
	defaultMaxAttempts  = 4
	defaultBaseDelay    = 100 * time.Millisecond
	defaultJitterFactor = 0.3
	errorTypeNone       = "none"
	errorTypeCanceled   = "context_canceled"
	errorTypeDeadline   = "context_deadline_exceeded"
	errorTypeRetryable  = "retryable"
	errorTypePermanent  = "permanent"
)

var (
	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")

	// ErrNoRetryableErrors is returned when WithRetryableErrors is called without targets.
	ErrNoRetryableErrors = errors.New("at least one retryable error must be supplied")
)

// RetryableFunc represents a function that can be retried.
type RetryableFunc func(ctx context.Context) error

// RetryMetadata describes how a retried call went.
type RetryMetadata struct {
	Attempts      int
	TotalDelay    time.Duration
	LastErrorType string
}

type retryConfig struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
	retryable    []error
}

// RetryWithExponentialBackoff executes fn until it succeeds, fails permanently, or maxAttempts is reached.
//
// Retry Schedule (default): 0 ms, 100 ms, 200 ms, 400 ms (with 30% jitter)
//
// Without WithRetryableErrors every error except context cancellation and deadline is retried.
// Callers on a user-facing request path must not use this; it is meant for background work.
func RetryWithExponentialBackoff(
	ctx context.Context,
	fn RetryableFunc,
	options ...RetryOption,
) (RetryMetadata, error) {
	config := &retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}

	for _, option := range options {
		if err := option(config); err != nil {
			return RetryMetadata{}, err
		}
	}

	meta := RetryMetadata{LastErrorType: errorTypeNone}
	var lastErr error

	for attempt := 0; attempt < config.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := config.baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * config.jitterFactor //nolint:gosec // math/rand is sufficient for jitter
			backoffDelay := delay + time.Duration(jitter)

			select {
			case <-time.After(backoffDelay):
				meta.TotalDelay += backoffDelay
			case <-ctx.Done():
				meta.LastErrorType = errorType(ctx.Err(), config)
				return meta, ctx.Err()
			}
		}

		meta.Attempts++

		lastErr = fn(ctx)
		if lastErr == nil {
			meta.LastErrorType = errorTypeNone
			return meta, nil
		}

		meta.LastErrorType = errorType(lastErr, config)

		if !config.isRetryable(lastErr) {
			return meta, lastErr
		}
	}

	return meta, lastErr
}

func (c *retryConfig) isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if len(c.retryable) == 0 {
		return true
	}

	for _, target := range c.retryable {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

func errorType(err error, config *retryConfig) string {
	switch {
	case err == nil:
		return errorTypeNone
	case errors.Is(err, context.Canceled):
		return errorTypeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return errorTypeDeadline
	case config.isRetryable(err):
		return errorTypeRetryable
	default:
		return errorTypePermanent
	}
}

// RetryOption configures retry behavior using the functional options pattern.
type RetryOption func(*retryConfig) error

// WithMaxAttempts sets the maximum number of attempts, the first call included.
func WithMaxAttempts(attempts int) RetryOption {
	return func(config *retryConfig) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		config.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
// Actual delays: baseDelay, baseDelay*2, baseDelay*4, etc.
func WithBaseDelay(delay time.Duration) RetryOption {
	return func(config *retryConfig) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		config.baseDelay = delay

		return nil
	}
}

// WithJitterFactor sets the jitter as a fraction of the calculated delay (0.0 to 1.0).
func WithJitterFactor(factor float64) RetryOption {
	return func(config *retryConfig) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		config.jitterFactor = factor

		return nil
	}
}

// WithRetryableErrors restricts retries to errors matching one of targets (errors.Is).
func WithRetryableErrors(targets ...error) RetryOption {
	return func(config *retryConfig) error {
		if len(targets) == 0 {
			return ErrNoRetryableErrors
		}

		config.retryable = append(config.retryable, targets...)

		return nil
	}
}
