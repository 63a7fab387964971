package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"

	"github.com/minerledger/backend/internal/auth"
	"github.com/minerledger/backend/internal/blob"
	"github.com/minerledger/backend/internal/config"
	"github.com/minerledger/backend/internal/dashboard"
	"github.com/minerledger/backend/internal/deposits"
	"github.com/minerledger/backend/internal/execution"
	"github.com/minerledger/backend/internal/export"
	"github.com/minerledger/backend/internal/ledger"
	"github.com/minerledger/backend/internal/metrics"
	"github.com/minerledger/backend/internal/packages"
	"github.com/minerledger/backend/internal/referral"
	"github.com/minerledger/backend/internal/repository"
	"github.com/minerledger/backend/internal/router"
	"github.com/minerledger/backend/internal/settings"
	"github.com/minerledger/backend/internal/withdrawals"
)

// core holds the pieces shared by the HTTP surface and the daily job.
type core struct {
	ledger   *ledger.Ledger
	resolver *settings.Resolver
	cascade  *referral.Cascade
	batch    *execution.Batch
}

// newAPI wires services and handlers and returns the root handler:
// /api/v1 behind CORS, proof uploads under /uploads/ and optionally /metrics.
func newAPI(pool *pgxpool.Pool, cfg *config.Config, c core, logger *slog.Logger) (http.Handler, error) {
	userRepo := repository.NewUserRepo(pool)
	packageRepo := repository.NewPackageRepo(pool)
	depositRepo := repository.NewDepositRepo(pool)
	walletRepo := repository.NewWalletRepo(pool)
	earningRepo := repository.NewEarningRepo(pool)
	txRepo := repository.NewTransactionRepo(pool)
	referralRepo := repository.NewReferralRepo(pool)
	withdrawalRepo := repository.NewWithdrawalRepo(pool)
	settingsRepo := repository.NewSettingsRepo(pool)

	authSvc := auth.NewService(pool, userRepo, referralRepo, c.ledger, auth.Options{
		Secret:      cfg.JWTSecret,
		TokenTTL:    24 * time.Hour,
		SignupBonus: cfg.SignupBonus,
		AdminEmails: cfg.AdminEmails,
	}, logger)

	proofs := blob.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL, cfg.MaxUploadBytes)
	depositSvc := deposits.NewService(pool, depositRepo, packageRepo, c.ledger, c.cascade, c.batch, logger)
	withdrawalSvc := withdrawals.NewService(pool, withdrawalRepo, walletRepo, referralRepo, c.resolver, c.ledger, cfg.MinWithdrawal, logger)
	dashSvc := dashboard.NewService(walletRepo, depositRepo, withdrawalRepo, referralRepo, earningRepo, txRepo)

	validator, err := settings.NewValidator()
	if err != nil {
		return nil, err
	}

	api := router.New(router.Handlers{
		Auth:        auth.NewHandler(authSvc, logger),
		Packages:    packages.NewHandler(packages.NewService(packageRepo), logger),
		Deposits:    deposits.NewHandler(depositSvc, proofs, logger),
		Withdrawals: withdrawals.NewHandler(withdrawalSvc, logger),
		Dashboard:   dashboard.NewHandler(dashSvc, logger),
		Settings:    settings.NewHandler(settings.NewAdmin(c.resolver, settingsRepo, validator, logger), logger),
		Execution:   execution.NewHandler(c.batch, c.ledger, logger),
		Export:      export.NewHandler(earningRepo, userRepo, walletRepo, logger),
	}, authSvc, userRepo)

	mux := http.NewServeMux()
	mux.Handle("/api/", api)
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	if cfg.MetricsEnabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
	}).Handler(mux), nil
}
