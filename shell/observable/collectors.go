package observable

import (
	"github.com/AntonStoeckl/library-lending/shell"
)

// Collectors bundles the observability backends a service wires into every handler.
// Nil members are skipped.
type Collectors struct {
	Metrics shell.MetricsCollector
	Tracing shell.TracingCollector
	Logger  shell.ContextualLogger
}

// Command wraps a command handler with all collectors and the given rejection classifier.
func Command[C shell.Command, R any](
	coreHandler shell.CoreCommandHandler[C, R],
	collectors Collectors,
	isRejection func(error) bool,
) (*CommandWrapper[C, R], error) {

	return NewCommandWrapper(
		coreHandler,
		WithCommandMetrics[C, R](collectors.Metrics),
		WithCommandTracing[C, R](collectors.Tracing),
		WithCommandContextualLogging[C, R](collectors.Logger),
		WithRejectionClassifier[C, R](isRejection),
	)
}

// Query wraps a query handler with all collectors and the given rejection classifier.
func Query[Q shell.Query, R any](
	coreHandler shell.CoreQueryHandler[Q, R],
	collectors Collectors,
	isRejection func(error) bool,
) (*QueryWrapper[Q, R], error) {

	return NewQueryWrapper(
		coreHandler,
		WithQueryMetrics[Q, R](collectors.Metrics),
		WithQueryTracing[Q, R](collectors.Tracing),
		WithQueryContextualLogging[Q, R](collectors.Logger),
		WithQueryRejectionClassifier[Q, R](isRejection),
	)
}
