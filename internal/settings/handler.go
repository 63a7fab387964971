package settings

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

const maxPayload = 4 << 10

type Handler struct {
	admin Admin
	log   *slog.Logger
}

func NewHandler(admin Admin, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{admin: admin, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /api/v1/admin/settings
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.admin.Current(r.Context())
	if err != nil {
		h.log.Error("load settings failed", "error", err)
		http.Error(w, "load settings failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// PUT /api/v1/admin/settings/{kind}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayload))
	if err != nil {
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}
	snap, err := h.admin.Update(r.Context(), Kind(r.PathValue("kind")), body)
	switch {
	case errors.Is(err, ErrUnknownKind):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		h.log.Error("update settings failed", "error", err)
		http.Error(w, "update settings failed", http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, snap)
	}
}
