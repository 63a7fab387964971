package execution

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/minerledger/backend/internal/ledger"
)

type Handler struct {
	batch     BatchRunner
	reconcile Reconciler
	log       *slog.Logger
	now       func() time.Time
}

func NewHandler(batch BatchRunner, reconcile Reconciler, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{batch: batch, reconcile: reconcile, log: log, now: time.Now}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /api/v1/admin/accrual/run?date=YYYY-MM-DD
// Runs the batch synchronously; the date defaults to today.
func (h *Handler) RunAccrual(w http.ResponseWriter, r *http.Request) {
	day := h.now()
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.Parse(time.DateOnly, v)
		if err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		day = parsed
	}
	// Detached from the request so a client disconnect does not roll back a
	// half-finished day.
	res, err := h.batch.Run(context.WithoutCancel(r.Context()), day)
	if err != nil {
		h.log.Error("manual accrual run failed", "date", day.Format(time.DateOnly), "error", err)
		http.Error(w, "accrual run failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/v1/admin/reconcile
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	drift, err := h.reconcile.Reconcile(r.Context())
	if err != nil {
		h.log.Error("reconcile failed", "error", err)
		http.Error(w, "reconcile failed", http.StatusInternalServerError)
		return
	}
	if drift == nil {
		drift = []ledger.Drift{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"drift": drift, "users": len(drift)})
}
