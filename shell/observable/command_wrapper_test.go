package observable_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending/shell"
	"github.com/AntonStoeckl/library-lending/shell/observable"
	"github.com/AntonStoeckl/library-lending/testutil/testdoubles"
)

type mockCommand struct {
	ID string
}

func (mockCommand) CommandType() string {
	return "TestCommand"
}

type mockHandler struct {
	result string
	err    error
	calls  []mockCommand
	mu     sync.Mutex
}

func (h *mockHandler) Handle(_ context.Context, command mockCommand) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, command)

	return h.result, h.err
}

var errRejectedByRule = errors.New("rejected by a business rule")

func newWrapper(
	t *testing.T,
	handler *mockHandler,
	metrics *testdoubles.MetricsCollectorSpy,
	tracing *testdoubles.TracingCollectorSpy,
	logger *testdoubles.ContextualLoggerSpy,
) *observable.CommandWrapper[mockCommand, string] {

	wrapper, err := observable.NewCommandWrapper[mockCommand, string](
		handler,
		observable.WithCommandMetrics[mockCommand, string](metrics),
		observable.WithCommandTracing[mockCommand, string](tracing),
		observable.WithCommandContextualLogging[mockCommand, string](logger),
		observable.WithRejectionClassifier[mockCommand, string](func(err error) bool {
			return errors.Is(err, errRejectedByRule)
		}),
	)
	require.NoError(t, err, "should create wrapper")

	return wrapper
}

func Test_CommandWrapper_Handle_When_HandlerSucceeds(t *testing.T) {
	// arrange
	handler := &mockHandler{result: "loan-1"}
	metrics := testdoubles.NewMetricsCollectorSpy(true)
	tracing := testdoubles.NewTracingCollectorSpy(true)
	logger := testdoubles.NewContextualLoggerSpy(true)
	wrapper := newWrapper(t, handler, metrics, tracing, logger)

	// act
	result, err := wrapper.Handle(context.Background(), mockCommand{ID: "c1"})

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "loan-1", result)
	assert.Equal(t, []mockCommand{{ID: "c1"}}, handler.calls)
	assert.True(t, metrics.HasCounterRecordForMetric(shell.CommandHandlerCallsMetric).
		WithLabel("command_type", "TestCommand").
		WithStatus("success").
		Assert())
	assert.True(t, metrics.HasDurationRecordForMetric(shell.CommandHandlerDurationMetric).
		WithStatus("success").
		Assert())
	assert.True(t, tracing.HasSpanRecordForName(shell.SpanNameCommandHandle).
		WithStartAttribute("command_type", "TestCommand").
		WithStatus("success").
		Assert())
	assert.True(t, logger.HasLog("info", shell.LogMsgCommandStarted))
	assert.True(t, logger.HasLog("info", shell.LogMsgCommandCompleted))
}

func Test_CommandWrapper_Handle_When_HandlerRejects(t *testing.T) {
	// arrange
	handler := &mockHandler{err: errors.Join(errRejectedByRule, errors.New("quota"))}
	metrics := testdoubles.NewMetricsCollectorSpy(true)
	tracing := testdoubles.NewTracingCollectorSpy(true)
	logger := testdoubles.NewContextualLoggerSpy(true)
	wrapper := newWrapper(t, handler, metrics, tracing, logger)

	// act
	_, err := wrapper.Handle(context.Background(), mockCommand{})

	// assert
	assert.ErrorIs(t, err, errRejectedByRule)
	assert.True(t, metrics.HasCounterRecordForMetric(shell.CommandHandlerCallsMetric).WithStatus("rejected").Assert())
	assert.True(t, logger.HasLog("info", shell.LogMsgCommandRejected))
	assert.Equal(t, 0, logger.CountLogs("error"))
}

func Test_CommandWrapper_Handle_When_HandlerFails(t *testing.T) {
	testCases := []struct {
		name           string
		err            error
		expectedStatus string
	}{
		{name: "unexpected failure", err: errors.New("db down"), expectedStatus: "error"},
		{name: "canceled", err: errors.Join(errors.New("query failed"), context.Canceled), expectedStatus: "canceled"},
		{name: "deadline", err: context.DeadlineExceeded, expectedStatus: "timeout"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			handler := &mockHandler{err: tc.err}
			metrics := testdoubles.NewMetricsCollectorSpy(true)
			tracing := testdoubles.NewTracingCollectorSpy(true)
			logger := testdoubles.NewContextualLoggerSpy(true)
			wrapper := newWrapper(t, handler, metrics, tracing, logger)

			// act
			_, err := wrapper.Handle(context.Background(), mockCommand{})

			// assert
			assert.ErrorIs(t, err, tc.err)
			assert.True(t, metrics.HasCounterRecordForMetric(shell.CommandHandlerCallsMetric).WithStatus(tc.expectedStatus).Assert())
			assert.True(t, tracing.HasSpanRecordForName(shell.SpanNameCommandHandle).WithStatus(tc.expectedStatus).Assert())
			assert.True(t, logger.HasLog("error", shell.LogMsgCommandFailed))
		})
	}
}

func Test_CommandWrapper_Handle_When_NoCollectorsAreConfigured(t *testing.T) {
	// arrange
	handler := &mockHandler{result: "ok"}
	wrapper, err := observable.NewCommandWrapper[mockCommand, string](handler)
	require.NoError(t, err)

	// act
	result, err := wrapper.Handle(context.Background(), mockCommand{})

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
}
