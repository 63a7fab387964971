package export

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/minerledger/backend/internal/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type EntrySource interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]*models.DailyEarning, error)
}

type UserSource interface {
	List(ctx context.Context) ([]*models.User, error)
}

type WalletSource interface {
	List(ctx context.Context) ([]*models.Wallet, error)
}

type Handler struct {
	entries EntrySource
	users   UserSource
	wallets WalletSource
	log     *slog.Logger
	now     func() time.Time
}

func NewHandler(entries EntrySource, users UserSource, wallets WalletSource, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{entries: entries, users: users, wallets: wallets, log: log, now: time.Now}
}

// GET /api/v1/admin/reports/ledger?from=YYYY-MM-DD&to=YYYY-MM-DD
// Defaults to the last 30 days, both ends inclusive.
func (h *Handler) Ledger(w http.ResponseWriter, r *http.Request) {
	to := models.DateOf(h.now())
	from := to.AddDate(0, 0, -30)
	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = time.Parse(time.DateOnly, v); err != nil {
			http.Error(w, "invalid from date", http.StatusBadRequest)
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = time.Parse(time.DateOnly, v); err != nil {
			http.Error(w, "invalid to date", http.StatusBadRequest)
			return
		}
	}
	if to.Before(from) {
		http.Error(w, "to is before from", http.StatusBadRequest)
		return
	}
	entries, err := h.entries.ListBetween(r.Context(), from, to)
	if err != nil {
		h.log.Error("load ledger report failed", "error", err)
		http.Error(w, "report failed", http.StatusInternalServerError)
		return
	}
	data, err := LedgerWorkbook(entries)
	if err != nil {
		h.log.Error("render ledger report failed", "error", err)
		http.Error(w, "report failed", http.StatusInternalServerError)
		return
	}
	writeXLSX(w, fmt.Sprintf("ledger_%s_%s.xlsx", from.Format(time.DateOnly), to.Format(time.DateOnly)), data)
}

// GET /api/v1/admin/reports/users
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.log.Error("load users report failed", "error", err)
		http.Error(w, "report failed", http.StatusInternalServerError)
		return
	}
	wallets, err := h.wallets.List(r.Context())
	if err != nil {
		h.log.Error("load wallets for report failed", "error", err)
		http.Error(w, "report failed", http.StatusInternalServerError)
		return
	}
	byUser := make(map[uuid.UUID]*models.Wallet, len(wallets))
	for _, wl := range wallets {
		byUser[wl.UserID] = wl
	}
	rows := make([]UserRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, UserRow{User: u, Wallet: byUser[u.ID]})
	}
	data, err := UsersWorkbook(rows)
	if err != nil {
		h.log.Error("render users report failed", "error", err)
		http.Error(w, "report failed", http.StatusInternalServerError)
		return
	}
	writeXLSX(w, "users_"+h.now().UTC().Format(time.DateOnly)+".xlsx", data)
}

func writeXLSX(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
