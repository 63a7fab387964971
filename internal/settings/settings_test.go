package settings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/minerledger/backend/internal/models"
)

// ---------------------------------------------------------------------------
// memStore implements Store and Writer
// ---------------------------------------------------------------------------

type memStore struct {
	mu       sync.Mutex
	roi      *models.ROISetting
	reinvest *models.ReinvestSetting
	tax      *models.WithdrawalTaxSetting
	err      error
	saves    int
}

func (m *memStore) ActiveROI(context.Context) (*models.ROISetting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roi, m.err
}

func (m *memStore) ActiveReinvest(context.Context) (*models.ReinvestSetting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reinvest, m.err
}

func (m *memStore) ActiveTax(context.Context) (*models.WithdrawalTaxSetting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tax, m.err
}

func (m *memStore) SaveROI(_ context.Context, s *models.ROISetting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roi, m.saves = s, m.saves+1
	return nil
}

func (m *memStore) SaveReinvest(_ context.Context, s *models.ReinvestSetting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reinvest, m.saves = s, m.saves+1
	return nil
}

func (m *memStore) SaveTax(_ context.Context, s *models.WithdrawalTaxSetting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tax, m.saves = s, m.saves+1
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newAdmin(t *testing.T, store *memStore) *admin {
	t.Helper()
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return NewAdmin(NewResolver(store), store, v, nil)
}

// ---------------------------------------------------------------------------
// Resolver
// ---------------------------------------------------------------------------

func TestLoad_DefaultsWhenNothingActive(t *testing.T) {
	snap, err := NewResolver(&memStore{}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !snap.ROIMin.Equal(dec("0.8")) || !snap.ROIMax.Equal(dec("1.2")) {
		t.Errorf("roi defaults: %s..%s", snap.ROIMin, snap.ROIMax)
	}
	if !snap.ReinvestPct.IsZero() || !snap.TaxPct.Equal(dec("20")) {
		t.Errorf("reinvest/tax defaults: %s, %s", snap.ReinvestPct, snap.TaxPct)
	}
	if !snap.ROIPercentage().Equal(dec("1")) {
		t.Errorf("roi midpoint: %s", snap.ROIPercentage())
	}
}

func TestLoad_ActiveRowsOverrideFieldByField(t *testing.T) {
	store := &memStore{tax: &models.WithdrawalTaxSetting{Percentage: dec("15")}}
	snap, err := NewResolver(store).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !snap.TaxPct.Equal(dec("15")) || !snap.ROIMin.Equal(DefaultROIMin) {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestLoad_PropagatesStoreError(t *testing.T) {
	if _, err := NewResolver(&memStore{err: errors.New("db down")}).Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

// ---------------------------------------------------------------------------
// Validator and Admin
// ---------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	cases := []struct {
		kind    Kind
		payload string
		ok      bool
	}{
		{KindROI, `{"min_percentage":0.5,"max_percentage":1.5}`, true},
		{KindROI, `{"min_percentage":0.5}`, false},
		{KindROI, `{"min_percentage":0.5,"max_percentage":101}`, false},
		{KindReinvest, `{"percentage":10}`, true},
		{KindReinvest, `{"percentage":-1}`, false},
		{KindTax, `{"percentage":20,"extra":true}`, false},
		{KindTax, `not json`, false},
	}
	for _, tc := range cases {
		err := v.Validate(tc.kind, json.RawMessage(tc.payload))
		if tc.ok && err != nil {
			t.Errorf("%s %s: unexpected error %v", tc.kind, tc.payload, err)
		}
		if !tc.ok && !errors.Is(err, ErrValidation) {
			t.Errorf("%s %s: expected ErrValidation, got %v", tc.kind, tc.payload, err)
		}
	}
	if err := v.Validate("bonus", json.RawMessage(`{}`)); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestUpdate_ReplacesActiveSetting(t *testing.T) {
	store := &memStore{}
	a := newAdmin(t, store)
	ctx := context.Background()

	snap, err := a.Update(ctx, KindROI, json.RawMessage(`{"min_percentage":1,"max_percentage":2}`))
	if err != nil {
		t.Fatalf("Update roi: %v", err)
	}
	if !snap.ROIPercentage().Equal(dec("1.5")) {
		t.Errorf("roi midpoint after update: %s", snap.ROIPercentage())
	}
	snap, err = a.Update(ctx, KindTax, json.RawMessage(`{"percentage":12.5}`))
	if err != nil {
		t.Fatalf("Update tax: %v", err)
	}
	if !snap.TaxPct.Equal(dec("12.5")) {
		t.Errorf("tax after update: %s", snap.TaxPct)
	}
}

func TestUpdate_RejectsInvertedROIRange(t *testing.T) {
	store := &memStore{}
	a := newAdmin(t, store)
	_, err := a.Update(context.Background(), KindROI, json.RawMessage(`{"min_percentage":2,"max_percentage":1}`))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if store.saves != 0 {
		t.Error("invalid range must not be stored")
	}
}

func TestHandlerUpdate_StatusCodes(t *testing.T) {
	h := NewHandler(newAdmin(t, &memStore{}), nil)
	do := func(kind, body string) int {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/settings/"+kind, strings.NewReader(body))
		req.SetPathValue("kind", kind)
		rec := httptest.NewRecorder()
		h.Update(rec, req)
		return rec.Code
	}
	if code := do("reinvest", `{"percentage":5}`); code != http.StatusOK {
		t.Errorf("valid update: %d", code)
	}
	if code := do("reinvest", `{"percentage":500}`); code != http.StatusBadRequest {
		t.Errorf("out of range: expected 400, got %d", code)
	}
	if code := do("bonus", `{}`); code != http.StatusNotFound {
		t.Errorf("unknown kind: expected 404, got %d", code)
	}
}
