package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/AntonStoeckl/library-lending/config"
	"github.com/AntonStoeckl/library-lending/downstream"
	"github.com/AntonStoeckl/library-lending/internal/bootstrap"
	"github.com/AntonStoeckl/library-lending/lending/features/markoverdue"
	"github.com/AntonStoeckl/library-lending/lending/httpapi"
	"github.com/AntonStoeckl/library-lending/lending/loanstore"
	"github.com/AntonStoeckl/library-lending/lending/sweeper"
	"github.com/AntonStoeckl/library-lending/schema"
	"github.com/AntonStoeckl/library-lending/web"
)

func main() {
	bootstrap.Exit(run())
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	cfg, err := config.LoadLending()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.NewRuntime(ctx, cfg.Common)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownPeriod)
		defer cancel()
		_ = rt.Shutdown(flushCtx)
	}()

	db, err := config.OpenSQLX(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.ApplySchema {
		if err = schema.Apply(ctx, db); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	store, err := loanstore.NewStore(
		db,
		loanstore.WithLogger(rt.Slog),
		loanstore.WithContextualLogger(rt.Logger),
		loanstore.WithMetrics(rt.Collectors.Metrics),
	)
	if err != nil {
		return fmt.Errorf("create loan store: %w", err)
	}

	verifier, err := bootstrap.NewVerifier(cfg.Identity, rt.Slog)
	if err != nil {
		return err
	}

	deps := httpapi.Dependencies{
		Loans: store,
		Inventory: downstream.NewInventoryClient(
			cfg.InventoryURL,
			downstream.WithInternalToken(cfg.InternalToken),
			downstream.WithTimeout(cfg.RemoteTimeout),
			downstream.WithLogger(rt.Slog),
		),
		Policy:      cfg.Policy,
		MaxPageSize: cfg.PageSizeMax,
		Collectors:  rt.Collectors,
	}

	handlers, err := httpapi.BuildHandlers(deps)
	if err != nil {
		return fmt.Errorf("build handlers: %w", err)
	}

	sweepHandler, err := httpapi.BuildSweepHandler(deps)
	if err != nil {
		return fmt.Errorf("build sweep handler: %w", err)
	}

	sw := sweeper.New(sweepHandler, schedule(cfg), sweeper.WithLogger(rt.Logger))

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)

		if cfg.SweepOnStartup {
			if _, sweepErr := sw.SweepNow(ctx, markoverdue.TriggerStartup); sweepErr != nil {
				rt.Slog.Warn("startup sweep failed", slog.String("error", sweepErr.Error()))
			}
		}

		_ = sw.Run(ctx)
	}()

	e := web.NewEcho(rt.Logger)
	httpapi.NewHandler(handlers, sw, httpapi.WithMaxPageSize(cfg.PageSizeMax)).
		Register(e, web.Authenticate(verifier), web.RequireInternalToken(cfg.InternalToken))

	serveErr := web.Serve(ctx, cfg.HTTPAddr, web.WithCORS(e, cfg.CORSOrigins), rt.Logger)

	stop()
	<-sweepDone

	return serveErr
}

func schedule(cfg config.Lending) sweeper.Schedule {
	if cfg.SweepInterval > 0 {
		return sweeper.Every(cfg.SweepInterval)
	}

	return sweeper.DailyAt{Hour: cfg.SweepHour, Minute: cfg.SweepMinute}
}
