// Command scheduler runs the hearing and task reminder pollers and the ops
// HTTP server until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-reminder-scheduler/internal/config"
	httpapi "github.com/tbourn/go-reminder-scheduler/internal/http"
	"github.com/tbourn/go-reminder-scheduler/internal/http/handlers"
	"github.com/tbourn/go-reminder-scheduler/internal/observability"
	"github.com/tbourn/go-reminder-scheduler/internal/repo"
	"github.com/tbourn/go-reminder-scheduler/internal/scheduler"
	"github.com/tbourn/go-reminder-scheduler/internal/services"
	"github.com/tbourn/go-reminder-scheduler/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetLogLevel(cfg.LogLevel)
	lg := sysutil.NewLogger(os.Stderr, cfg.LogPretty, cfg.OTEL.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Error().Err(err).Msg("scheduler exited with error")
		stop()
		os.Exit(1)
	}
	lg.Info().Msg("scheduler stopped")
}

func run(ctx context.Context, cfg config.Config, lg zerolog.Logger) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("setup otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			lg.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg.DB, cfg.OTEL.Enabled)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	store := repo.NewSQLSource(db, cfg.DB.TenantID)
	checks := []handlers.Check{{Name: "store", Ping: store.Ping}}

	var ledger services.Ledger
	switch cfg.Ledger.Backend {
	case "redis":
		rl, err := repo.NewRedisLedger(cfg.Ledger.RedisURL)
		if err != nil {
			return fmt.Errorf("open redis ledger: %w", err)
		}
		defer rl.Close()
		ledger = rl
		checks = append(checks, handlers.Check{Name: "ledger", Ping: rl.EnsureSchema})
	default:
		ledger = repo.NewSQLLedger(db)
	}

	senders, err := buildSenders(cfg, lg)
	if err != nil {
		return err
	}

	resolver := &services.RecipientResolver{Relations: store, Identity: store}
	newDispatcher := func(cc config.CategoryConfig) *services.Dispatcher {
		return &services.Dispatcher{
			Resolver:    resolver,
			Ledger:      ledger,
			Senders:     senders,
			MaxAttempts: cc.MaxAttemptsPerRecipient,
			SendTimeout: cfg.Send.Timeout,
			Logger:      lg,
		}
	}

	pollers := []*scheduler.Poller{
		scheduler.NewPoller(cfg.Reminders.Hearing, &services.HearingProvider{Source: store},
			newDispatcher(cfg.Reminders.Hearing), ledger, lg),
		scheduler.NewPoller(cfg.Reminders.Task, &services.TaskProvider{Source: store},
			newDispatcher(cfg.Reminders.Task), ledger, lg),
	}

	ops := &handlers.Ops{Checks: checks}
	for _, p := range pollers {
		ops.Pollers = append(ops.Pollers, p)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.OpsPort,
		Handler:           httpapi.NewRouter(httpapi.Options{ServiceName: cfg.OTEL.ServiceName, Logger: lg, Ops: ops}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range pollers {
		g.Go(func() error { return p.Run(gctx) })
	}
	g.Go(func() error {
		lg.Info().Str("addr", srv.Addr).Msg("ops server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	lg.Info().
		Str("version", version).
		Str("db_driver", cfg.DB.Driver).
		Str("ledger", cfg.Ledger.Backend).
		Int("channels", len(senders)).
		Msg("scheduler started")
	return g.Wait()
}
