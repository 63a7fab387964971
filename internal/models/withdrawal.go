package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalApproved  WithdrawalStatus = "approved"
	WithdrawalRejected  WithdrawalStatus = "rejected"
	WithdrawalCompleted WithdrawalStatus = "completed"
)

func (s WithdrawalStatus) Valid() bool {
	switch s {
	case WithdrawalPending, WithdrawalApproved, WithdrawalRejected, WithdrawalCompleted:
		return true
	}
	return false
}

type WithdrawalMethod string

const (
	WithdrawalBankTransfer WithdrawalMethod = "bank_transfer"
	WithdrawalEasyPaisa    WithdrawalMethod = "easypaisa"
	WithdrawalJazzCash     WithdrawalMethod = "jazzcash"
)

func (m WithdrawalMethod) Valid() bool {
	switch m {
	case WithdrawalBankTransfer, WithdrawalEasyPaisa, WithdrawalJazzCash:
		return true
	}
	return false
}

// Withdrawal carries tax and net amounts frozen at creation.
type Withdrawal struct {
	ID                uuid.UUID        `json:"id"`
	UserID            uuid.UUID        `json:"user_id"`
	Amount            decimal.Decimal  `json:"amount"`
	Method            WithdrawalMethod `json:"withdrawal_method"`
	Account           string           `json:"withdrawal_account"`
	Status            WithdrawalStatus `json:"status"`
	TaxAmount         decimal.Decimal  `json:"tax_amount"`
	NetAmount         decimal.Decimal  `json:"net_amount"`
	ApprovedBy        *uuid.UUID       `json:"approved_by,omitempty"`
	ApprovalDate      *time.Time       `json:"approval_date,omitempty"`
	RejectionReason   string           `json:"rejection_reason,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// PaidOut is what reached the user: the net amount once the payout is
// completed, zero otherwise.
func (w *Withdrawal) PaidOut() decimal.Decimal {
	if w.Status != WithdrawalCompleted {
		return decimal.Zero
	}
	return w.NetAmount
}
