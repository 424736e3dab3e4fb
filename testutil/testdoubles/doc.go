// Package testdoubles provides spies and stubs for the logging, metrics and tracing hooks
// and for the inventory capability used by the lending workflow.
//
//   - LogHandlerSpy: a slog.Handler capturing records, for *slog.Logger based loggers
//   - ContextualLoggerSpy: captures context-aware logging calls
//   - MetricsCollectorSpy: captures duration, counter and value metrics
//   - TracingCollectorSpy: captures started and finished spans
//   - InventoryStub: delegates to a real ledger and injects failures per operation
package testdoubles
