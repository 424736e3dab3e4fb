package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AntonStoeckl/library-lending/config"
	"github.com/AntonStoeckl/library-lending/downstream"
	"github.com/AntonStoeckl/library-lending/internal/bootstrap"
	"github.com/AntonStoeckl/library-lending/inventory/httpapi"
	"github.com/AntonStoeckl/library-lending/inventory/sqlengine"
	"github.com/AntonStoeckl/library-lending/schema"
	"github.com/AntonStoeckl/library-lending/shell"
	"github.com/AntonStoeckl/library-lending/web"
)

func main() {
	bootstrap.Exit(run())
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	cfg, err := config.LoadInventory()
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

	ledgerOptions := []sqlengine.Option{
		sqlengine.WithLogger(rt.Slog),
		sqlengine.WithContextualLogger(rt.Logger),
		sqlengine.WithMetrics(rt.Collectors.Metrics),
		sqlengine.WithTracing(rt.Collectors.Tracing),
	}

	var ledger *sqlengine.Ledger
	if cfg.Database.UsePGXPool {
		pool, poolErr := config.OpenPGXPool(ctx, cfg.Database)
		if poolErr != nil {
			return poolErr
		}
		defer pool.Close()

		ledger, err = sqlengine.NewLedgerFromPGXPool(pool, ledgerOptions...)
	} else {
		ledger, err = sqlengine.NewLedgerFromSQLX(db, ledgerOptions...)
	}

	if err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}

	verifier, err := bootstrap.NewVerifier(cfg.Identity, rt.Slog)
	if err != nil {
		return err
	}

	handlerOptions := []httpapi.Option{
		httpapi.WithMaxPageSize(cfg.PageSizeMax),
		httpapi.WithLogger(rt.Logger),
		httpapi.WithPropagationRetry(shell.WithMaxAttempts(cfg.PropagateAttempts)),
	}

	if cfg.LendingURL != "" {
		lending := downstream.NewLendingClient(
			cfg.LendingURL,
			downstream.WithInternalToken(cfg.InternalToken),
			downstream.WithTimeout(cfg.LendingTimeout),
			downstream.WithLogger(rt.Slog),
		)
		handlerOptions = append(handlerOptions, httpapi.WithTitlePropagator(lending))
	} else {
		rt.Slog.Warn("LENDING_URL is not set, renamed titles are not propagated")
	}

	handler := httpapi.NewHandler(ledger, handlerOptions...)

	e := web.NewEcho(rt.Logger)
	handler.Register(e, web.Authenticate(verifier), web.RequireInternalToken(cfg.InternalToken))

	defer handler.Wait()

	return web.Serve(ctx, cfg.HTTPAddr, web.WithCORS(e, cfg.CORSOrigins), rt.Logger)
}
