package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EarningType tags a ledger entry. The daily_earnings table is unique on
// (user_id, earning_type, earned_date, deposit_id).
type EarningType string

const (
	EarningMining      EarningType = "mining"
	EarningROI         EarningType = "roi"
	EarningReferral    EarningType = "referral"
	EarningReinvest    EarningType = "reinvest"
	EarningSignupBonus EarningType = "signup_bonus"
)

func (t EarningType) Valid() bool {
	switch t {
	case EarningMining, EarningROI, EarningReferral, EarningReinvest, EarningSignupBonus:
		return true
	}
	return false
}

func ParseEarningType(s string) (EarningType, error) {
	if t := EarningType(s); t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("unknown earning type %q", s)
}

// CountsTowardBalance reports whether entries of this type are credits in the
// wallet balance fold. Reinvest entries record the reinvested share of mining
// and roi that is already counted.
func (t EarningType) CountsTowardBalance() bool {
	switch t {
	case EarningMining, EarningROI, EarningReferral, EarningSignupBonus:
		return true
	case EarningReinvest:
		return false
	}
	panic(fmt.Sprintf("unhandled earning type %q", string(t)))
}

// TransactionType is the audit transaction counterpart of the earning type.
func (t EarningType) TransactionType() TransactionType {
	switch t {
	case EarningMining:
		return TxMining
	case EarningROI:
		return TxROI
	case EarningReferral:
		return TxReferral
	case EarningReinvest:
		return TxReinvest
	case EarningSignupBonus:
		return TxDeposit
	}
	panic(fmt.Sprintf("unhandled earning type %q", string(t)))
}

// InReferralBase reports whether the entry is part of its owner's daily
// referral commission base. Approval commissions carry a deposit and are
// left out; daily referral credits carry none and are counted.
func (e *DailyEarning) InReferralBase() bool {
	switch e.EarningType {
	case EarningMining, EarningROI, EarningReinvest:
		return true
	case EarningReferral:
		return e.DepositID == nil
	}
	return false
}

type DailyEarning struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	EarningType EarningType     `json:"earning_type"`
	Amount      decimal.Decimal `json:"amount"`
	DepositID   *uuid.UUID      `json:"deposit_id,omitempty"`
	EarnedDate  time.Time       `json:"earned_date"`
	CreatedAt   time.Time       `json:"created_at"`
}
