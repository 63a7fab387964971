package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/minerledger/backend/internal/models"
)

// Writer replaces the active row of a settings table.
type Writer interface {
	SaveROI(ctx context.Context, s *models.ROISetting) error
	SaveReinvest(ctx context.Context, s *models.ReinvestSetting) error
	SaveTax(ctx context.Context, s *models.WithdrawalTaxSetting) error
}

type Admin interface {
	Current(ctx context.Context) (Snapshot, error)
	Update(ctx context.Context, kind Kind, payload json.RawMessage) (Snapshot, error)
}

type admin struct {
	resolver  *Resolver
	writer    Writer
	validator *Validator
	log       *slog.Logger
}

func NewAdmin(resolver *Resolver, writer Writer, validator *Validator, log *slog.Logger) *admin {
	if log == nil {
		log = slog.Default()
	}
	return &admin{resolver: resolver, writer: writer, validator: validator, log: log}
}

var _ Admin = (*admin)(nil)

func (a *admin) Current(ctx context.Context) (Snapshot, error) {
	return a.resolver.Load(ctx)
}

// Update validates payload, stores it as the single active row of kind and
// returns the resulting snapshot. Runs already in progress keep the snapshot
// they loaded.
func (a *admin) Update(ctx context.Context, kind Kind, payload json.RawMessage) (Snapshot, error) {
	if err := a.validator.Validate(kind, payload); err != nil {
		return Snapshot{}, err
	}
	var err error
	switch kind {
	case KindROI:
		var in struct {
			Min decimal.Decimal `json:"min_percentage"`
			Max decimal.Decimal `json:"max_percentage"`
		}
		if err := json.Unmarshal(payload, &in); err != nil {
			return Snapshot{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if in.Min.GreaterThan(in.Max) {
			return Snapshot{}, fmt.Errorf("%w: min_percentage exceeds max_percentage", ErrValidation)
		}
		err = a.writer.SaveROI(ctx, &models.ROISetting{MinPercentage: in.Min, MaxPercentage: in.Max, IsActive: true})
	case KindReinvest, KindTax:
		var in struct {
			Percentage decimal.Decimal `json:"percentage"`
		}
		if err := json.Unmarshal(payload, &in); err != nil {
			return Snapshot{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if kind == KindReinvest {
			err = a.writer.SaveReinvest(ctx, &models.ReinvestSetting{Percentage: in.Percentage, IsActive: true})
		} else {
			err = a.writer.SaveTax(ctx, &models.WithdrawalTaxSetting{Percentage: in.Percentage, IsActive: true})
		}
	default:
		return Snapshot{}, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("save %s setting: %w", kind, err)
	}
	a.log.Info("settings updated", "kind", kind)
	return a.resolver.Load(ctx)
}
