// Package router assembles the /api/v1 surface.
package router

import (
	"net/http"

	"github.com/minerledger/backend/internal/auth"
	"github.com/minerledger/backend/internal/dashboard"
	"github.com/minerledger/backend/internal/deposits"
	"github.com/minerledger/backend/internal/execution"
	"github.com/minerledger/backend/internal/export"
	"github.com/minerledger/backend/internal/metrics"
	"github.com/minerledger/backend/internal/middleware"
	"github.com/minerledger/backend/internal/packages"
	"github.com/minerledger/backend/internal/settings"
	"github.com/minerledger/backend/internal/withdrawals"
)

type Handlers struct {
	Auth        *auth.Handler
	Packages    *packages.Handler
	Deposits    *deposits.Handler
	Withdrawals *withdrawals.Handler
	Dashboard   *dashboard.Handler
	Settings    *settings.Handler
	Execution   *execution.Handler
	Export      *export.Handler
}

// New returns an http.Handler that serves the API under /api/v1.
// Money-moving member routes additionally require an active account.
func New(h Handlers, tokens middleware.TokenValidator, users middleware.UserLookup) http.Handler {
	mux := http.NewServeMux()
	const base = "/api/v1"

	authed := middleware.BearerAuth(tokens)
	active := middleware.RequireActiveAccount(users)
	member := func(f http.HandlerFunc) http.Handler { return authed(f) }
	money := func(f http.HandlerFunc) http.Handler { return authed(active(f)) }
	admin := func(f http.HandlerFunc) http.Handler { return authed(middleware.RequireAdmin(f)) }

	mux.HandleFunc("POST "+base+"/auth/register", h.Auth.Register)
	mux.HandleFunc("POST "+base+"/auth/login", h.Auth.Login)
	mux.Handle("GET "+base+"/me", member(h.Auth.Me))

	mux.HandleFunc("GET "+base+"/packages", h.Packages.ListActive)
	mux.HandleFunc("GET "+base+"/packages/{id}", h.Packages.Get)

	mux.Handle("POST "+base+"/deposits", money(h.Deposits.Create))
	mux.Handle("GET "+base+"/deposits", member(h.Deposits.ListMine))
	mux.Handle("POST "+base+"/withdrawals", money(h.Withdrawals.Create))
	mux.Handle("GET "+base+"/withdrawals", member(h.Withdrawals.ListMine))

	mux.Handle("GET "+base+"/wallet", member(h.Dashboard.GetWallet))
	mux.Handle("GET "+base+"/dashboard", member(h.Dashboard.GetStats))
	mux.Handle("GET "+base+"/earnings", member(h.Dashboard.ListEarnings))
	mux.Handle("GET "+base+"/transactions", member(h.Dashboard.ListTransactions))
	mux.Handle("GET "+base+"/referrals/team", member(h.Dashboard.GetTeam))

	mux.Handle("GET "+base+"/admin/deposits/pending", admin(h.Deposits.ListPending))
	mux.Handle("POST "+base+"/admin/deposits/{id}/approve", admin(h.Deposits.Approve))
	mux.Handle("POST "+base+"/admin/deposits/{id}/reject", admin(h.Deposits.Reject))

	mux.Handle("GET "+base+"/admin/withdrawals/pending", admin(h.Withdrawals.ListPending))
	mux.Handle("POST "+base+"/admin/withdrawals/{id}/approve", admin(h.Withdrawals.Approve))
	mux.Handle("POST "+base+"/admin/withdrawals/{id}/reject", admin(h.Withdrawals.Reject))
	mux.Handle("POST "+base+"/admin/withdrawals/{id}/complete", admin(h.Withdrawals.Complete))

	mux.Handle("POST "+base+"/admin/packages", admin(h.Packages.Create))
	mux.Handle("POST "+base+"/admin/packages/{id}/deactivate", admin(h.Packages.Deactivate))

	mux.Handle("PATCH "+base+"/admin/users/{id}/status", admin(h.Auth.SetStatus))

	mux.Handle("GET "+base+"/admin/settings", admin(h.Settings.Get))
	mux.Handle("PUT "+base+"/admin/settings/{kind}", admin(h.Settings.Update))

	mux.Handle("POST "+base+"/admin/accrual/run", admin(h.Execution.RunAccrual))
	mux.Handle("GET "+base+"/admin/reconcile", admin(h.Execution.Reconcile))

	mux.Handle("GET "+base+"/admin/reports/ledger", admin(h.Export.Ledger))
	mux.Handle("GET "+base+"/admin/reports/users", admin(h.Export.Users))

	return metrics.Instrument(mux)
}
