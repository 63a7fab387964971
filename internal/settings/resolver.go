// Package settings resolves the active ROI range, reinvest percentage and
// withdrawal tax percentage into a Snapshot that batch runs hold by value.
package settings

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/minerledger/backend/internal/models"
)

var (
	DefaultROIMin      = decimal.RequireFromString("0.8")
	DefaultROIMax      = decimal.RequireFromString("1.2")
	DefaultReinvestPct = decimal.Zero
	DefaultTaxPct      = decimal.NewFromInt(20)
)

// Snapshot is the effective configuration for one batch run.
type Snapshot struct {
	ROIMin      decimal.Decimal `json:"roi_min_percentage"`
	ROIMax      decimal.Decimal `json:"roi_max_percentage"`
	ReinvestPct decimal.Decimal `json:"reinvest_percentage"`
	TaxPct      decimal.Decimal `json:"withdrawal_tax_percentage"`
}

// Defaults is the snapshot used when no setting row is active.
func Defaults() Snapshot {
	return Snapshot{
		ROIMin:      DefaultROIMin,
		ROIMax:      DefaultROIMax,
		ReinvestPct: DefaultReinvestPct,
		TaxPct:      DefaultTaxPct,
	}
}

// ROIPercentage is the midpoint of the ROI range.
func (s Snapshot) ROIPercentage() decimal.Decimal {
	return s.ROIMin.Add(s.ROIMax).Div(decimal.NewFromInt(2))
}

// Store is the read side of the settings tables.
type Store interface {
	ActiveROI(ctx context.Context) (*models.ROISetting, error)
	ActiveReinvest(ctx context.Context) (*models.ReinvestSetting, error)
	ActiveTax(ctx context.Context) (*models.WithdrawalTaxSetting, error)
}

type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Load reads the first active row of each setting, falling back to Defaults
// field by field.
func (r *Resolver) Load(ctx context.Context) (Snapshot, error) {
	snap := Defaults()
	roi, err := r.store.ActiveROI(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load roi setting: %w", err)
	}
	if roi != nil {
		snap.ROIMin, snap.ROIMax = roi.MinPercentage, roi.MaxPercentage
	}
	reinvest, err := r.store.ActiveReinvest(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load reinvest setting: %w", err)
	}
	if reinvest != nil {
		snap.ReinvestPct = reinvest.Percentage
	}
	tax, err := r.store.ActiveTax(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load tax setting: %w", err)
	}
	if tax != nil {
		snap.TaxPct = tax.Percentage
	}
	return snap, nil
}

// GetActiveROIRange returns the active (min, max) ROI range.
func (r *Resolver) GetActiveROIRange(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	snap, err := r.Load(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return snap.ROIMin, snap.ROIMax, nil
}

func (r *Resolver) GetActiveReinvestPct(ctx context.Context) (decimal.Decimal, error) {
	snap, err := r.Load(ctx)
	return snap.ReinvestPct, err
}

func (r *Resolver) GetActiveTaxPct(ctx context.Context) (decimal.Decimal, error) {
	snap, err := r.Load(ctx)
	return snap.TaxPct, err
}
