package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DepositStatus string

const (
	DepositPending  DepositStatus = "pending"
	DepositApproved DepositStatus = "approved"
	DepositRejected DepositStatus = "rejected"
)

func (s DepositStatus) Valid() bool {
	switch s {
	case DepositPending, DepositApproved, DepositRejected:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCard         PaymentMethod = "card"
	PaymentCrypto       PaymentMethod = "crypto"
	PaymentCOD          PaymentMethod = "cod"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentBankTransfer, PaymentCard, PaymentCrypto, PaymentCOD:
		return true
	}
	return false
}

type Deposit struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	PackageID       uuid.UUID       `json:"package_id"`
	Amount          decimal.Decimal `json:"amount"`
	Status          DepositStatus   `json:"status"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	TransactionRef  string          `json:"transaction_id"`
	AccountName     string          `json:"account_name"`
	ProofURL        string          `json:"deposit_proof,omitempty"`
	ApprovedBy      *uuid.UUID      `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ActiveDeposit is an approved deposit joined with its package, as consumed by the accrual engine.
type ActiveDeposit struct {
	Deposit Deposit
	Package MiningPackage
}

// DaysElapsed returns whole calendar days between approval and asOf.
func (d *Deposit) DaysElapsed(asOf time.Time) int {
	if d.ApprovedAt == nil {
		return 0
	}
	return int(DateOf(asOf).Sub(DateOf(*d.ApprovedAt)).Hours() / 24)
}

// Matured reports whether the deposit stopped accruing on asOf.
func (d *Deposit) Matured(asOf time.Time, durationDays int) bool {
	return d.DaysElapsed(asOf) >= durationDays
}

// RemainingDays is the number of accrual days left as of asOf.
func (d *Deposit) RemainingDays(asOf time.Time, durationDays int) int {
	if d.Status != DepositApproved || d.ApprovedAt == nil {
		return durationDays
	}
	return max(0, durationDays-d.DaysElapsed(asOf))
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
