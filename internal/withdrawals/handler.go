package withdrawals

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minerledger/backend/internal/middleware"
	"github.com/minerledger/backend/internal/models"
)

type CreateRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Method  string          `json:"withdrawal_method"`
	Account string          `json:"withdrawal_account"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /api/v1/withdrawals
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	method := models.WithdrawalMethod(req.Method)
	if req.Method == "" {
		method = models.WithdrawalBankTransfer
	}
	wd, err := h.svc.Create(r.Context(), userID, CreateInput{Amount: req.Amount, Method: method, Account: req.Account})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, wd)
}

// GET /api/v1/withdrawals
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListByUser(r.Context(), middleware.UserIDFromCtx(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if list == nil {
		list = []*models.Withdrawal{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/v1/admin/withdrawals/pending
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListPending(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if list == nil {
		list = []*models.Withdrawal{}
	}
	writeJSON(w, http.StatusOK, list)
}

// POST /api/v1/admin/withdrawals/{id}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	wd, err := h.svc.Approve(r.Context(), id, middleware.UserIDFromCtx(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wd)
}

// POST /api/v1/admin/withdrawals/{id}/reject
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req RejectRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
	}
	wd, err := h.svc.Reject(r.Context(), id, middleware.UserIDFromCtx(r.Context()), req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wd)
}

// POST /api/v1/admin/withdrawals/{id}/complete
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	wd, err := h.svc.Complete(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wd)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid withdrawal id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrBelowMinimum), errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrNotEnoughReferrals), errors.Is(err, ErrInvalidMethod),
		errors.Is(err, ErrAccountRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error("withdrawal request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
