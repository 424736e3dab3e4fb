// Package bootstrap assembles the runtime pieces both services start from.
package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"

	"github.com/AntonStoeckl/library-lending/config"
	"github.com/AntonStoeckl/library-lending/downstream"
	"github.com/AntonStoeckl/library-lending/identity"
	"github.com/AntonStoeckl/library-lending/oteladapters"
	"github.com/AntonStoeckl/library-lending/shell"
	"github.com/AntonStoeckl/library-lending/shell/observable"
)

// ErrNoVerifier is returned when neither a JWT secret nor an identity service is configured.
var ErrNoVerifier = errors.New("no token verifier configured")

// Runtime is the observability of one running service.
type Runtime struct {
	Slog       *slog.Logger
	Logger     shell.ContextualLogger
	Collectors observable.Collectors
	providers  *config.Providers
}

// NewRuntime sets up telemetry and logging for cfg. Logs always go to stdout as JSON and
// additionally to OTLP when a logs endpoint is configured.
func NewRuntime(ctx context.Context, cfg config.Common) (*Runtime, error) {
	console := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})

	providers, err := config.SetupTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{providers: providers}

	if providers.LoggerProvider != nil {
		bridge := oteladapters.NewSlogBridgeLogger(cfg.ServiceName, console)
		rt.Slog = bridge.Slog()
		rt.Logger = bridge
	} else {
		rt.Slog = slog.New(console)
		rt.Logger = rt.Slog
	}

	rt.Collectors = observable.Collectors{
		Metrics: oteladapters.NewMetricsCollector(otel.Meter(cfg.ServiceName)),
		Tracing: oteladapters.NewTracingCollector(otel.Tracer(cfg.ServiceName)),
		Logger:  rt.Logger,
	}

	return rt, nil
}

// Shutdown flushes the telemetry providers.
func (r *Runtime) Shutdown(ctx context.Context) error {
	return r.providers.Shutdown(ctx)
}

// NewVerifier prefers local JWT verification and falls back to the identity service,
// whose answers are cached and guarded by a circuit breaker.
func NewVerifier(cfg config.Identity, logger shell.Logger) (identity.Verifier, error) {
	if cfg.JWTSecret != "" {
		verifier, err := identity.NewJWTVerifier(cfg.JWTSecret)
		if err != nil {
			return nil, err
		}

		return verifier, nil
	}

	if cfg.URL == "" {
		return nil, ErrNoVerifier
	}

	return downstream.NewIdentityClient(
		cfg.URL,
		downstream.WithLogger(logger),
		downstream.WithCache(cfg.CacheSize, cfg.CacheTTL),
	), nil
}

// Exit logs err and terminates the process when err is set.
func Exit(err error) {
	if err == nil {
		return
	}

	slog.Error("service failed", slog.String("error", err.Error()))
	os.Exit(1)
}
