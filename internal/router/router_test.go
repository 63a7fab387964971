package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/minerledger/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubTokens struct {
	role models.Role
}

func (s stubTokens) ValidateToken(_ context.Context, token string) (uuid.UUID, models.Role, error) {
	if token != "good" {
		return uuid.Nil, "", errors.New("bad token")
	}
	return uuid.New(), s.role, nil
}

type stubUsers struct {
	status models.AccountStatus
}

func (s stubUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return &models.User{ID: id, AccountStatus: s.status}, nil
}

func serve(h http.Handler, method, path, token string) int {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRouter_RequiresToken(t *testing.T) {
	h := New(Handlers{}, stubTokens{role: models.RoleMember}, stubUsers{status: models.AccountActive})

	for _, path := range []string{"/api/v1/me", "/api/v1/wallet", "/api/v1/dashboard", "/api/v1/referrals/team"} {
		if code := serve(h, http.MethodGet, path, ""); code != http.StatusUnauthorized {
			t.Errorf("GET %s without token: expected 401, got %d", path, code)
		}
		if code := serve(h, http.MethodGet, path, "forged"); code != http.StatusUnauthorized {
			t.Errorf("GET %s with bad token: expected 401, got %d", path, code)
		}
	}
}

func TestRouter_AdminRoutesRejectMembers(t *testing.T) {
	h := New(Handlers{}, stubTokens{role: models.RoleMember}, stubUsers{status: models.AccountActive})

	cases := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/admin/deposits/pending"},
		{http.MethodPost, "/api/v1/admin/deposits/" + uuid.NewString() + "/approve"},
		{http.MethodPost, "/api/v1/admin/withdrawals/" + uuid.NewString() + "/complete"},
		{http.MethodPut, "/api/v1/admin/settings/roi"},
		{http.MethodPost, "/api/v1/admin/accrual/run"},
		{http.MethodGet, "/api/v1/admin/reports/ledger"},
		{http.MethodPatch, "/api/v1/admin/users/" + uuid.NewString() + "/status"},
	}
	for _, tc := range cases {
		if code := serve(h, tc.method, tc.path, "good"); code != http.StatusForbidden {
			t.Errorf("%s %s as member: expected 403, got %d", tc.method, tc.path, code)
		}
	}
}

func TestRouter_MoneyRoutesRequireActiveAccount(t *testing.T) {
	h := New(Handlers{}, stubTokens{role: models.RoleMember}, stubUsers{status: models.AccountSuspended})

	for _, path := range []string{"/api/v1/deposits", "/api/v1/withdrawals"} {
		if code := serve(h, http.MethodPost, path, "good"); code != http.StatusForbidden {
			t.Errorf("POST %s while suspended: expected 403, got %d", path, code)
		}
	}
}

func TestRouter_MethodAndPath(t *testing.T) {
	h := New(Handlers{}, stubTokens{role: models.RoleMember}, stubUsers{status: models.AccountActive})

	if code := serve(h, http.MethodDelete, "/api/v1/auth/login", ""); code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE login: expected 405, got %d", code)
	}
	if code := serve(h, http.MethodGet, "/api/v1/nope", ""); code != http.StatusNotFound {
		t.Errorf("unknown path: expected 404, got %d", code)
	}
}
