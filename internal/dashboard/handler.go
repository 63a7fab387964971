package dashboard

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/minerledger/backend/internal/middleware"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

type Handler struct {
	svc *Service
	log *slog.Logger
	now func() time.Time
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log, now: time.Now}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultLimit
	}
	return min(n, maxLimit)
}

// GET /api/v1/dashboard
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	stats, err := h.svc.GetDashboardStats(r.Context(), userID, h.now())
	if err != nil {
		h.log.Error("dashboard stats failed", "user_id", userID, "error", err)
		http.Error(w, "dashboard unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GET /api/v1/wallet
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	wallet, err := h.svc.Wallet(r.Context(), userID)
	if err != nil {
		h.log.Error("get wallet failed", "user_id", userID, "error", err)
		http.Error(w, "wallet unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// GET /api/v1/earnings?limit=
func (h *Handler) ListEarnings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	list, err := h.svc.Earnings(r.Context(), userID, limitParam(r))
	if err != nil {
		h.log.Error("list earnings failed", "user_id", userID, "error", err)
		http.Error(w, "list earnings failed", http.StatusInternalServerError)
		return
	}
	if list == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/v1/transactions?limit=
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	list, err := h.svc.Transactions(r.Context(), userID, limitParam(r))
	if err != nil {
		h.log.Error("list transactions failed", "user_id", userID, "error", err)
		http.Error(w, "list transactions failed", http.StatusInternalServerError)
		return
	}
	if list == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/v1/referrals/team
func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	team, err := h.svc.Team(r.Context(), userID)
	if err != nil {
		h.log.Error("team stats failed", "user_id", userID, "error", err)
		http.Error(w, "team unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, team)
}
