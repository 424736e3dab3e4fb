package downstream

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/AntonStoeckl/library-lending/shell"
)

const (
	logMsgBreakerStateChanged = "circuit breaker state changed"
	logAttrBreaker            = "breaker"
	logAttrFrom               = "from"
	logAttrTo                 = "to"
)

// errCallFailed tells gobreaker that a call counts as failed. It never leaves this package.
var errCallFailed = errors.New("call counted as failed")

// BreakerSettings configures one Breaker.
type BreakerSettings struct {
	Name                 string
	WindowSize           int
	MinimumCalls         int
	FailureRateThreshold float64
	SlowCallThreshold    time.Duration
	OpenTimeout          time.Duration
	HalfOpenCalls        uint32
}

// DefaultBreakerSettings returns a window of 10 calls, at least 5 recorded calls, a 50% failure
// threshold, a 5s slow-call threshold, a 20s cool-down and 3 half-open trial calls.
func DefaultBreakerSettings(name string) BreakerSettings {
	return BreakerSettings{
		Name:                 name,
		WindowSize:           10,
		MinimumCalls:         5,
		FailureRateThreshold: 0.5,
		SlowCallThreshold:    5 * time.Second,
		OpenTimeout:          20 * time.Second,
		HalfOpenCalls:        3,
	}
}

// Breaker guards one downstream. A call fails when the remote is unavailable or answers
// slower than the slow-call threshold. The failure rate is taken over a count-based window
// of the most recent calls, which is cleared on every state change.
type Breaker struct {
	cb     *gobreaker.CircuitBreaker
	window *outcomeWindow
	slow   time.Duration
	logger shell.Logger
}

// NewBreaker creates a Breaker. logger may be nil.
func NewBreaker(settings BreakerSettings, logger shell.Logger) *Breaker {
	b := &Breaker{
		window: newOutcomeWindow(settings.WindowSize),
		slow:   settings.SlowCallThreshold,
		logger: logger,
	}

	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.HalfOpenCalls,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(gobreaker.Counts) bool {
			calls, failed := b.window.snapshot()
			if calls < settings.MinimumCalls {
				return false
			}

			return float64(failed)/float64(calls) >= settings.FailureRateThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			b.window.reset()

			if b.logger != nil {
				b.logger.Warn(logMsgBreakerStateChanged,
					logAttrBreaker, name,
					logAttrFrom, from.String(),
					logAttrTo, to.String(),
				)
			}
		},
	})

	return b
}

// State returns "closed", "open" or "half-open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Call runs fn through the breaker. An open circuit, or a half-open circuit with all trial
// slots taken, fails fast with ErrServiceUnavailable without calling fn.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		result  T
		callErr error
	)

	_, err := b.cb.Execute(func() (any, error) {
		start := time.Now()
		result, callErr = fn(ctx)

		// A call abandoned by its caller says nothing about the remote and is not recorded.
		if ctx.Err() != nil && errors.Is(callErr, ctx.Err()) {
			return nil, nil
		}

		failed := errors.Is(callErr, ErrServiceUnavailable) || (b.slow > 0 && time.Since(start) > b.slow)
		b.window.record(failed)

		if failed {
			return nil, errCallFailed
		}

		return nil, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, unavailable(err)
	}

	return result, callErr
}

// outcomeWindow keeps the outcomes of the last size calls.
type outcomeWindow struct {
	mu       sync.Mutex
	failures []bool
	next     int
	filled   int
}

func newOutcomeWindow(size int) *outcomeWindow {
	if size < 1 {
		size = 1
	}

	return &outcomeWindow{failures: make([]bool, size)}
}

func (w *outcomeWindow) record(failed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.failures[w.next] = failed
	w.next = (w.next + 1) % len(w.failures)

	if w.filled < len(w.failures) {
		w.filled++
	}
}

func (w *outcomeWindow) snapshot() (calls int, failed int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := 0; i < w.filled; i++ {
		if w.failures[i] {
			failed++
		}
	}

	return w.filled, failed
}

func (w *outcomeWindow) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	clear(w.failures)
	w.next = 0
	w.filled = 0
}
