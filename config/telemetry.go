package config

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const defaultMetricInterval = 15 * time.Second

// ErrTelemetrySetupFailed wraps exporter and provider failures.
var ErrTelemetrySetupFailed = errors.New("telemetry setup failed")

// Telemetry configures the OTLP export. Traces and metrics go over gRPC to OTLPEndpoint,
// logs over HTTP to OTLPLogsURL. Empty endpoints switch the respective signal off.
type Telemetry struct {
	ServiceName    string
	OTLPEndpoint   string
	OTLPLogsURL    string
	Insecure       bool
	MetricInterval time.Duration
}

// Providers are the SDK providers SetupTelemetry registered globally. Nil members were
// not configured.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
}

// SetupTelemetry builds the configured providers and registers them as the global ones,
// together with the W3C trace context propagator.
func SetupTelemetry(ctx context.Context, t Telemetry) (*Providers, error) {
	providers := &Providers{}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String(t.ServiceName)))
	if err != nil {
		return nil, errors.Join(ErrTelemetrySetupFailed, err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	if t.OTLPEndpoint != "" {
		if err = providers.setupTracesAndMetrics(ctx, t, res); err != nil {
			_ = providers.Shutdown(ctx)
			return nil, err
		}
	}

	if t.OTLPLogsURL != "" {
		if err = providers.setupLogs(ctx, t, res); err != nil {
			_ = providers.Shutdown(ctx)
			return nil, err
		}
	}

	return providers, nil
}

func (p *Providers) setupTracesAndMetrics(ctx context.Context, t Telemetry, res *resource.Resource) error {
	traceOptions := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(t.OTLPEndpoint)}
	metricOptions := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(t.OTLPEndpoint)}
	if t.Insecure {
		traceOptions = append(traceOptions, otlptracegrpc.WithInsecure())
		metricOptions = append(metricOptions, otlpmetricgrpc.WithInsecure())
	}

	traceExporter, err := otlptracegrpc.New(ctx, traceOptions...)
	if err != nil {
		return errors.Join(ErrTelemetrySetupFailed, err)
	}

	p.TracerProvider = sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter), sdktrace.WithResource(res))
	otel.SetTracerProvider(p.TracerProvider)

	metricExporter, err := otlpmetricgrpc.New(ctx, metricOptions...)
	if err != nil {
		return errors.Join(ErrTelemetrySetupFailed, err)
	}

	interval := t.MetricInterval
	if interval <= 0 {
		interval = defaultMetricInterval
	}

	p.MeterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(p.MeterProvider)

	return nil
}

func (p *Providers) setupLogs(ctx context.Context, t Telemetry, res *resource.Resource) error {
	options := []otlploghttp.Option{otlploghttp.WithEndpointURL(t.OTLPLogsURL)}
	if t.Insecure {
		options = append(options, otlploghttp.WithInsecure())
	}

	logExporter, err := otlploghttp.New(ctx, options...)
	if err != nil {
		return errors.Join(ErrTelemetrySetupFailed, err)
	}

	p.LoggerProvider = sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(p.LoggerProvider)

	return nil
}

// Shutdown flushes and stops every configured provider.
func (p *Providers) Shutdown(ctx context.Context) error {
	var err error

	if p.TracerProvider != nil {
		err = errors.Join(err, p.TracerProvider.Shutdown(ctx))
	}

	if p.MeterProvider != nil {
		err = errors.Join(err, p.MeterProvider.Shutdown(ctx))
	}

	if p.LoggerProvider != nil {
		err = errors.Join(err, p.LoggerProvider.Shutdown(ctx))
	}

	return err
}
