// Package packages manages the mining package catalog.
package packages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minerledger/backend/internal/models"
	"github.com/minerledger/backend/internal/repository"
)

var (
	ErrNotFound        = errors.New("mining package not found")
	ErrPriceBelowFloor = errors.New("package price is below the minimum")
	ErrInvalidPackage  = errors.New("invalid mining package")
)

type CreateInput struct {
	Name         string
	Price        decimal.Decimal
	DailyEarning decimal.Decimal
	DurationDays int
}

type Service interface {
	Create(ctx context.Context, in CreateInput) (*models.MiningPackage, error)
	Get(ctx context.Context, id uuid.UUID) (*models.MiningPackage, error)
	ListActive(ctx context.Context) ([]*models.MiningPackage, error)
	ListAll(ctx context.Context) ([]*models.MiningPackage, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type Store interface {
	Create(ctx context.Context, p *models.MiningPackage) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.MiningPackage, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	List(ctx context.Context, activeOnly bool) ([]*models.MiningPackage, error)
}

type service struct {
	store Store
}

func NewService(store Store) *service {
	return &service{store: store}
}

var _ Service = (*service)(nil)

func (s *service) Create(ctx context.Context, in CreateInput) (*models.MiningPackage, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || !in.DailyEarning.IsPositive() || in.DurationDays <= 0 {
		return nil, ErrInvalidPackage
	}
	if in.Price.LessThan(models.MinPackagePrice) {
		return nil, ErrPriceBelowFloor
	}
	p := &models.MiningPackage{
		ID:           uuid.New(),
		Name:         name,
		Price:        in.Price.Round(2),
		DailyEarning: in.DailyEarning.Round(2),
		DurationDays: in.DurationDays,
		IsActive:     true,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create package: %w", err)
	}
	return p, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.MiningPackage, error) {
	p, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *service) ListActive(ctx context.Context) ([]*models.MiningPackage, error) {
	return s.store.List(ctx, true)
}

func (s *service) ListAll(ctx context.Context) ([]*models.MiningPackage, error) {
	return s.store.List(ctx, false)
}

// SetActive hides or re-lists a package. Deposits on an inactive package
// are not visited by the daily accrual run.
func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	err := s.store.SetActive(ctx, id, active)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
