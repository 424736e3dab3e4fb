// Package observable decorates command handlers with metrics, tracing and logging.
package observable
