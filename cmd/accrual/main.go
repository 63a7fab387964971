// Command accrual runs the end-of-day batch for one calendar day and exits.
// It is the re-run-for-date path after a missed or partial scheduled run;
// already-posted entries are skipped, so running it twice is harmless.
//
//	accrual -date 2025-05-01
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minerledger/backend/internal/accrual"
	"github.com/minerledger/backend/internal/config"
	"github.com/minerledger/backend/internal/db"
	"github.com/minerledger/backend/internal/execution"
	"github.com/minerledger/backend/internal/ledger"
	"github.com/minerledger/backend/internal/referral"
	"github.com/minerledger/backend/internal/repository"
	"github.com/minerledger/backend/internal/settings"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	dateFlag := flag.String("date", "", "calendar day to accrue, YYYY-MM-DD (default: today in ACCRUAL_TZ)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	date := *dateFlag
	if date == "" {
		date = execution.ArgsFor(time.Now(), cfg.AccrualLocation).Date
	}
	// Dates are calendar labels; parse as UTC like the scheduled job does.
	asOf, err := time.Parse(time.DateOnly, date)
	if err != nil {
		slog.Error("Invalid -date, want YYYY-MM-DD", "date", date, "error", err)
		os.Exit(2)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		slog.Error("Schema migration failed", "error", err)
		os.Exit(1)
	}

	userRepo := repository.NewUserRepo(pool)
	depositRepo := repository.NewDepositRepo(pool)
	earningRepo := repository.NewEarningRepo(pool)

	l := ledger.New(pool, earningRepo, repository.NewWalletRepo(pool), repository.NewTransactionRepo(pool), logger)
	engine := accrual.NewEngine(pool, depositRepo, settings.NewResolver(repository.NewSettingsRepo(pool)), l, logger)
	cascade := referral.NewCascade(pool, userRepo, depositRepo, repository.NewReferralRepo(pool), earningRepo, l, logger)

	res, err := execution.NewBatch(engine, cascade, l, logger).Run(ctx, asOf)
	if err != nil {
		slog.Error("Accrual batch failed", "date", asOf.Format(time.DateOnly), "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(res)
}
