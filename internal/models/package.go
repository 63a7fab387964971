package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MinPackagePrice is the lowest price a mining package may be listed at.
var MinPackagePrice = decimal.NewFromInt(500)

type MiningPackage struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	DailyEarning decimal.Decimal `json:"daily_earning"`
	DurationDays int             `json:"duration_days"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
