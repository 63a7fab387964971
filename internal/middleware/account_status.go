package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/minerledger/backend/internal/models"
)

// UserLookup loads the authenticated user.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RequireActiveAccount rejects suspended and banned users on routes that
// move money. It must run after BearerAuth.
func RequireActiveAccount(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := UserIDFromCtx(r.Context())
			if id == uuid.Nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			u, err := users.GetByID(r.Context(), id)
			if err != nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			if u.AccountStatus != models.AccountActive {
				http.Error(w, `{"error":"account is `+string(u.AccountStatus)+`"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
