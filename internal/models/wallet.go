package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Wallet struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"user_id"`
	MiningIncome     decimal.Decimal `json:"mining_income"`
	ROIEarnings      decimal.Decimal `json:"roi_earnings"`
	ReferralEarnings decimal.Decimal `json:"referral_earnings"`
	SignupBonus      decimal.Decimal `json:"signup_bonus"`
	Balance          decimal.Decimal `json:"balance"`
	LastEarningDate  *time.Time      `json:"last_earning_date,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TotalEarnings is the sum of the running earning totals.
func (w *Wallet) TotalEarnings() decimal.Decimal {
	return w.MiningIncome.Add(w.ROIEarnings).Add(w.ReferralEarnings).Add(w.SignupBonus)
}
