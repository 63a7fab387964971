package deposits

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minerledger/backend/internal/blob"
	"github.com/minerledger/backend/internal/middleware"
)

const (
	proofFolder    = "deposit_proofs"
	maxProofMemory = 8 << 20
)

type RejectRequest struct {
	Reason string `json:"reason"`
}

type Handler struct {
	svc   Service
	blobs blob.Store
	log   *slog.Logger
}

func NewHandler(svc Service, blobs blob.Store, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, blobs: blobs, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /api/v1/deposits (multipart: package_id, amount, payment_method,
// transaction_id, account_name, deposit_proof file)
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := r.ParseMultipartForm(maxProofMemory); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	packageID, err := uuid.Parse(r.FormValue("package_id"))
	if err != nil {
		http.Error(w, "invalid package_id", http.StatusBadRequest)
		return
	}
	amount, err := decimal.NewFromString(r.FormValue("amount"))
	if err != nil || !amount.IsPositive() {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}
	in := CreateInput{
		PackageID:      packageID,
		Amount:         amount,
		PaymentMethod:  paymentMethod(r.FormValue("payment_method")),
		TransactionRef: r.FormValue("transaction_id"),
		AccountName:    r.FormValue("account_name"),
	}

	file, header, err := r.FormFile("deposit_proof")
	if err == nil {
		defer file.Close()
		url, err := h.blobs.Upload(r.Context(), header.Filename, file, proofFolder)
		if err != nil {
			h.log.Error("upload deposit proof failed", "user_id", userID, "error", err)
			http.Error(w, "upload failed", http.StatusBadRequest)
			return
		}
		in.ProofURL = url
	}

	d, err := h.svc.Create(r.Context(), userID, in)
	if err != nil {
		if in.ProofURL != "" {
			if _, delErr := h.blobs.Delete(r.Context(), in.ProofURL); delErr != nil {
				h.log.Warn("remove orphaned deposit proof failed", "error", delErr)
			}
		}
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// GET /api/v1/deposits
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	list, err := h.svc.ListByUser(r.Context(), userID)
	if err != nil {
		h.log.Error("list deposits failed", "user_id", userID, "error", err)
		http.Error(w, "list deposits failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

// GET /api/v1/admin/deposits/pending
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListPending(r.Context())
	if err != nil {
		h.log.Error("list pending deposits failed", "error", err)
		http.Error(w, "list deposits failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

// POST /api/v1/admin/deposits/{id}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid deposit id", http.StatusBadRequest)
		return
	}
	d, commissions, err := h.svc.Approve(r.Context(), id, middleware.UserIDFromCtx(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deposit": d, "commissions": commissions})
}

// POST /api/v1/admin/deposits/{id}/reject
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid deposit id", http.StatusBadRequest)
		return
	}
	var req RejectRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
	}
	d, err := h.svc.Reject(r.Context(), id, middleware.UserIDFromCtx(r.Context()), req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrAlreadyProcessed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrPackageUnavailable), errors.Is(err, ErrAmountBelowPrice),
		errors.Is(err, ErrInvalidPaymentMethod), errors.Is(err, ErrProofRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error("deposit request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
