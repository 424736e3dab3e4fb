package observable_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending/shell"
	"github.com/AntonStoeckl/library-lending/shell/observable"
	"github.com/AntonStoeckl/library-lending/testutil/testdoubles"
)

type mockQuery struct{}

func (mockQuery) QueryType() string {
	return "TestQuery"
}

type mockQueryHandler struct {
	result int
	err    error
}

func (h mockQueryHandler) Handle(_ context.Context, _ mockQuery) (int, error) {
	return h.result, h.err
}

var errNotVisible = errors.New("not visible to the caller")

func Test_QueryWrapper_Handle(t *testing.T) {
	testCases := []struct {
		name           string
		handler        mockQueryHandler
		expectedStatus string
		expectedLevel  string
		expectedMsg    string
	}{
		{
			name:           "success is logged at debug",
			handler:        mockQueryHandler{result: 42},
			expectedStatus: "success",
			expectedLevel:  "debug",
			expectedMsg:    shell.LogMsgQueryCompleted,
		},
		{
			name:           "rejection is logged at info",
			handler:        mockQueryHandler{err: errNotVisible},
			expectedStatus: "rejected",
			expectedLevel:  "info",
			expectedMsg:    shell.LogMsgQueryRejected,
		},
		{
			name:           "failure is logged at error",
			handler:        mockQueryHandler{err: errors.New("db down")},
			expectedStatus: "error",
			expectedLevel:  "error",
			expectedMsg:    shell.LogMsgQueryFailed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			metrics := testdoubles.NewMetricsCollectorSpy(true)
			tracing := testdoubles.NewTracingCollectorSpy(true)
			logger := testdoubles.NewContextualLoggerSpy(true)
			wrapper, err := observable.NewQueryWrapper[mockQuery, int](
				tc.handler,
				observable.WithQueryMetrics[mockQuery, int](metrics),
				observable.WithQueryTracing[mockQuery, int](tracing),
				observable.WithQueryContextualLogging[mockQuery, int](logger),
				observable.WithQueryRejectionClassifier[mockQuery, int](func(err error) bool {
					return errors.Is(err, errNotVisible)
				}),
			)
			require.NoError(t, err)

			// act
			result, handleErr := wrapper.Handle(context.Background(), mockQuery{})

			// assert
			assert.Equal(t, tc.handler.result, result)
			assert.Equal(t, tc.handler.err, handleErr)
			assert.True(t, metrics.HasCounterRecordForMetric(shell.QueryHandlerCallsMetric).
				WithLabel("query_type", "TestQuery").
				WithStatus(tc.expectedStatus).
				Assert())
			assert.True(t, tracing.HasSpanRecordForName(shell.SpanNameQueryHandle).WithStatus(tc.expectedStatus).Assert())
			assert.True(t, logger.HasLog(tc.expectedLevel, tc.expectedMsg))
		})
	}
}
