package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ROISetting struct {
	ID            uuid.UUID       `json:"id"`
	MinPercentage decimal.Decimal `json:"min_percentage"`
	MaxPercentage decimal.Decimal `json:"max_percentage"`
	IsActive      bool            `json:"is_active"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type ReinvestSetting struct {
	ID         uuid.UUID       `json:"id"`
	Percentage decimal.Decimal `json:"percentage"`
	IsActive   bool            `json:"is_active"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type WithdrawalTaxSetting struct {
	ID         uuid.UUID       `json:"id"`
	Percentage decimal.Decimal `json:"percentage"`
	IsActive   bool            `json:"is_active"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
