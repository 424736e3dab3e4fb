package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/library-lending/shell"
)

const attrOutcome = "outcome"

// TracingCollector starts and ends OpenTelemetry spans for the shell tracing hooks.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a collector on top of tracer.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan starts a child span of the span in ctx.
func (t *TracingCollector) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, shell.SpanContext) {
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attrs)...))

	return spanCtx, &SpanContext{span: span}
}

// FinishSpan sets the final attributes and status and ends the span.
// Span contexts from other collectors are ignored.
func (t *TracingCollector) FinishSpan(spanCtx shell.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(*SpanContext)
	if !ok {
		return
	}

	span.span.SetAttributes(toAttributes(attrs)...)
	span.SetStatus(status)
	span.span.End()
}

var _ shell.TracingCollector = (*TracingCollector)(nil)

// SpanContext wraps an OpenTelemetry span.
type SpanContext struct {
	span trace.Span
}

// SetStatus maps the shell status values onto span status codes. A rejection is a
// regular business outcome, so the span stays Ok and carries the outcome attribute.
func (s *SpanContext) SetStatus(status string) {
	s.span.SetAttributes(attribute.String(attrOutcome, status))

	switch status {
	case shell.StatusSuccess, shell.StatusRejected:
		s.span.SetStatus(codes.Ok, "")
	case shell.StatusCanceled:
		s.span.SetStatus(codes.Error, "canceled")
	case shell.StatusTimeout:
		s.span.SetStatus(codes.Error, "timed out")
	case shell.StatusError:
		s.span.SetStatus(codes.Error, "failed")
	default:
	}
}

// AddAttribute sets a string attribute on the span.
func (s *SpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var _ shell.SpanContext = (*SpanContext)(nil)
