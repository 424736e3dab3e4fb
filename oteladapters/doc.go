// Package oteladapters backs the shell observability interfaces with OpenTelemetry:
// a trace-correlated slog logger, a meter-backed metrics collector and a tracer-backed
// tracing collector. Both services wire them in their main packages.
package oteladapters
