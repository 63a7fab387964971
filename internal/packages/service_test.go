package packages

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minerledger/backend/internal/models"
	"github.com/minerledger/backend/internal/repository"
)

type memStore struct {
	mu   sync.Mutex
	pkgs map[uuid.UUID]*models.MiningPackage
}

func newMemStore() *memStore { return &memStore{pkgs: make(map[uuid.UUID]*models.MiningPackage)} }

func (m *memStore) Create(_ context.Context, p *models.MiningPackage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.pkgs[p.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.MiningPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pkgs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pkgs[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.IsActive = active
	return nil
}

func (m *memStore) List(_ context.Context, activeOnly bool) ([]*models.MiningPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.MiningPackage
	for _, p := range m.pkgs {
		if activeOnly && !p.IsActive {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	return out, nil
}

func TestCreate_PriceFloor(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()
	in := CreateInput{Name: "Starter", Price: decimal.NewFromInt(499), DailyEarning: decimal.NewFromInt(10), DurationDays: 30}
	if _, err := svc.Create(ctx, in); !errors.Is(err, ErrPriceBelowFloor) {
		t.Errorf("expected ErrPriceBelowFloor, got %v", err)
	}
	in.Price = decimal.NewFromInt(500)
	p, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create at floor: %v", err)
	}
	if !p.IsActive {
		t.Error("new package should be active")
	}
	in.DurationDays = 0
	if _, err := svc.Create(ctx, in); !errors.Is(err, ErrInvalidPackage) {
		t.Errorf("zero duration: expected ErrInvalidPackage, got %v", err)
	}
}

func TestDeactivate_HidesFromActiveList(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()
	gold, _ := svc.Create(ctx, CreateInput{Name: "Gold", Price: decimal.NewFromInt(5000), DailyEarning: decimal.NewFromInt(100), DurationDays: 30})
	_, _ = svc.Create(ctx, CreateInput{Name: "Silver", Price: decimal.NewFromInt(1000), DailyEarning: decimal.NewFromInt(20), DurationDays: 30})

	if err := svc.SetActive(ctx, gold.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	active, _ := svc.ListActive(ctx)
	if len(active) != 1 || active[0].Name != "Silver" {
		t.Errorf("active list: %+v", active)
	}
	all, _ := svc.ListAll(ctx)
	if len(all) != 2 || all[0].Name != "Silver" {
		t.Errorf("all list should be ordered by price: %+v", all)
	}
	if err := svc.SetActive(ctx, uuid.New(), false); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown package: expected ErrNotFound, got %v", err)
	}
}

func TestHandlerCreateAndList(t *testing.T) {
	h := NewHandler(NewService(newMemStore()), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/packages",
		strings.NewReader(`{"name":"Gold","price":"5000","daily_earning":"100","duration_days":30}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ListActive(rec, httptest.NewRequest(http.MethodGet, "/api/v1/packages", nil))
	var list []models.MiningPackage
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "Gold" {
		t.Errorf("unexpected list: %+v", list)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/packages", strings.NewReader(`{"name":"Cheap","price":"100","daily_earning":"1","duration_days":30}`))
	rec = httptest.NewRecorder()
	h.Create(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("below floor: expected 400, got %d", rec.Code)
	}
}
