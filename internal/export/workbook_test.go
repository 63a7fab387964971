package export

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/minerledger/backend/internal/models"
)

func readRows(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows(%s): %v", sheet, err)
	}
	return rows
}

func TestLedgerWorkbook(t *testing.T) {
	dep := uuid.New()
	day := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	entries := []*models.DailyEarning{
		{ID: uuid.New(), UserID: uuid.New(), EarningType: models.EarningMining, Amount: decimal.NewFromInt(100), DepositID: &dep, EarnedDate: day},
		{ID: uuid.New(), UserID: uuid.New(), EarningType: models.EarningSignupBonus, Amount: decimal.RequireFromString("12.345"), EarnedDate: day},
	}
	data, err := LedgerWorkbook(entries)
	if err != nil {
		t.Fatalf("LedgerWorkbook: %v", err)
	}
	rows := readRows(t, data, ledgerSheet)
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][2] != "Type" || rows[1][2] != "mining" || rows[1][4] != dep.String() || rows[1][5] != "2025-05-01" {
		t.Errorf("unexpected first row: %v", rows[1])
	}
	if rows[2][3] != "12.35" || rows[2][4] != "" {
		t.Errorf("unexpected second row: %v", rows[2])
	}
}

func TestUsersWorkbook_NilWallet(t *testing.T) {
	u := &models.User{ID: uuid.New(), Email: "a@x.io", DisplayName: "A", Role: models.RoleMember, AccountStatus: models.AccountActive, ReferralCode: "ABCD2345"}
	data, err := UsersWorkbook([]UserRow{{User: u}})
	if err != nil {
		t.Fatalf("UsersWorkbook: %v", err)
	}
	rows := readRows(t, data, usersSheet)
	if len(rows) != 2 || rows[1][1] != "a@x.io" || rows[1][6] != "0" {
		t.Errorf("unexpected rows: %v", rows)
	}
}

type fixedEntries []*models.DailyEarning

func (f fixedEntries) ListBetween(context.Context, time.Time, time.Time) ([]*models.DailyEarning, error) {
	return f, nil
}

func TestHandlerLedger(t *testing.T) {
	h := NewHandler(fixedEntries{}, nil, nil, nil)

	rec := httptest.NewRecorder()
	h.Ledger(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/reports/ledger?from=2025-05-01&to=2025-05-31", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="ledger_2025-05-01_2025-05-31.xlsx"` {
		t.Errorf("Content-Disposition = %s", got)
	}

	rec = httptest.NewRecorder()
	h.Ledger(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/reports/ledger?from=2025-06-01&to=2025-05-01", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("inverted range: expected 400, got %d", rec.Code)
	}
}
