package packages

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minerledger/backend/internal/models"
)

type CreatePackageRequest struct {
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	DailyEarning decimal.Decimal `json:"daily_earning"`
	DurationDays int             `json:"duration_days"`
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

// GET /api/v1/packages
func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListActive(r.Context())
	if err != nil {
		h.log.Error("list packages failed", "error", err)
		http.Error(w, "list packages failed", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.MiningPackage{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/v1/packages/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid package id", http.StatusBadRequest)
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("get package failed", "error", err)
		http.Error(w, "get package failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// POST /api/v1/admin/packages
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePackageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	p, err := h.svc.Create(r.Context(), CreateInput{
		Name:         req.Name,
		Price:        req.Price,
		DailyEarning: req.DailyEarning,
		DurationDays: req.DurationDays,
	})
	if errors.Is(err, ErrPriceBelowFloor) || errors.Is(err, ErrInvalidPackage) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.log.Error("create package failed", "error", err)
		http.Error(w, "create package failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// POST /api/v1/admin/packages/{id}/deactivate
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid package id", http.StatusBadRequest)
		return
	}
	if err := h.svc.SetActive(r.Context(), id, false); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.log.Error("deactivate package failed", "error", err)
		http.Error(w, "deactivate package failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
