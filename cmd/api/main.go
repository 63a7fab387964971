package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/minerledger/backend/internal/accrual"
	"github.com/minerledger/backend/internal/config"
	"github.com/minerledger/backend/internal/db"
	"github.com/minerledger/backend/internal/execution"
	"github.com/minerledger/backend/internal/ledger"
	"github.com/minerledger/backend/internal/referral"
	"github.com/minerledger/backend/internal/repository"
	"github.com/minerledger/backend/internal/scheduler"
	"github.com/minerledger/backend/internal/settings"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database successfully!")

	if err := db.Migrate(ctx, pool); err != nil {
		slog.Error("Schema migration failed", "error", err)
		os.Exit(1)
	}

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Migrations applied")

	// Ledger core
	userRepo := repository.NewUserRepo(pool)
	depositRepo := repository.NewDepositRepo(pool)
	walletRepo := repository.NewWalletRepo(pool)
	earningRepo := repository.NewEarningRepo(pool)
	txRepo := repository.NewTransactionRepo(pool)
	referralRepo := repository.NewReferralRepo(pool)
	settingsRepo := repository.NewSettingsRepo(pool)

	l := ledger.New(pool, earningRepo, walletRepo, txRepo, logger)
	resolver := settings.NewResolver(settingsRepo)
	engine := accrual.NewEngine(pool, depositRepo, resolver, l, logger)
	cascade := referral.NewCascade(pool, userRepo, depositRepo, referralRepo, earningRepo, l, logger)
	batch := execution.NewBatch(engine, cascade, l, logger)

	// Daily accrual job
	workers := river.NewWorkers()
	river.AddWorker(workers, execution.NewDailyAccrualWorker(batch))
	riverCfg := &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 1},
		},
		Workers: workers,
	}
	if cfg.SchedulerEnabled {
		riverCfg.PeriodicJobs = scheduler.PeriodicJobs(scheduler.DailyAt{
			Hour:     cfg.AccrualHour,
			Minute:   cfg.AccrualMinute,
			Location: cfg.AccrualLocation,
		})
	}
	riverClient, err := river.NewClient(riverpgxv5.New(pool), riverCfg)
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}
	sched := scheduler.New(riverClient, cfg.SchedulerEnabled, logger)
	if err := sched.Start(ctx); err != nil {
		slog.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}

	handler, err := newAPI(pool, cfg, core{ledger: l, resolver: resolver, cascade: cascade, batch: batch}, logger)
	if err != nil {
		slog.Error("Failed to build API", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP shutdown failed", "error", err)
		}
		if err := sched.Stop(shutdownCtx); err != nil {
			slog.Error("Scheduler stop failed", "error", err)
		}
	}()

	slog.Info("Starting HTTP server", "addr", srv.Addr, "scheduler", cfg.SchedulerEnabled)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
